package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"localdrive/internal/config"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// Open подключается к базе, накатывает миграции и настраивает пул соединений
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == config.DriverSQLite {
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := connectWithRetry(ctx, cfg, connectAttempts, connectDelay)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite не любит параллельных писателей
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := RunMigrations(cfg); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
		if err == nil {
			return db, nil
		}

		log.Warn().Err(err).Msgf("failed to connect to database (attempt %d/%d)", i+1, maxAttempts)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

// RunMigrations применяет встроенные миграции для выбранного драйвера
func RunMigrations(cfg *config.DatabaseConfig) error {
	src, err := iofs.New(migrationsFS, "migrations/"+cfg.Driver)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrationURL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn().Msgf("found dirty database state at version %d, forcing version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Debug().Str("driver", cfg.Driver).Msg("migrations applied")
	return nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
