package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	// 100 MB, как в исходном клиенте
	DefaultCapacityBytes int64 = 100 * 1024 * 1024
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Storage  StorageConfig  `mapstructure:"Storage"`
}

type ServerConfig struct {
	Port     string `mapstructure:"Port"`
	BaseURL  string `mapstructure:"BaseURL"`
	GRPCPort string `mapstructure:"GRPCPort"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"Driver"`
	DSN    string `mapstructure:"DSN"`
}

type StorageConfig struct {
	CapacityBytes  int64         `mapstructure:"CapacityBytes"`
	EnforceQuota   bool          `mapstructure:"EnforceQuota"`
	TrashRetention time.Duration `mapstructure:"TrashRetention"`
	UploadWorkers  int           `mapstructure:"UploadWorkers"`
}

// NewConfig читает конфигурацию из файла и переменных окружения.
// Отсутствующий файл не ошибка: используются только переменные окружения и значения по умолчанию.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("env")

	envMappings := map[string]string{
		"Server.Port":            "HTTP_PORT",
		"Server.BaseURL":         "BASE_URL",
		"Server.GRPCPort":        "GRPC_PORT",
		"Database.Driver":        "DATABASE_DRIVER",
		"Database.DSN":           "DATABASE_DSN",
		"Storage.CapacityBytes":  "STORAGE_CAPACITY_BYTES",
		"Storage.EnforceQuota":   "STORAGE_ENFORCE_QUOTA",
		"Storage.TrashRetention": "STORAGE_TRASH_RETENTION",
		"Storage.UploadWorkers":  "STORAGE_UPLOAD_WORKERS",
	}
	for key, env := range envMappings {
		if err := v.BindEnv(key, env); err != nil {
			log.Warn().Err(err).Msgf("failed to bind environment variable %s for %s", env, key)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Debug().Msgf("config file %s not found, using environment variables and defaults", path)
	} else {
		// .env-файлы плоские: ключи вида DATABASE_DSN переносим на вложенные поля
		for key, env := range envMappings {
			if v.IsSet(strings.ToLower(env)) && !isEnvSet(env) {
				v.Set(key, v.Get(strings.ToLower(env)))
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Server.BaseURL", "http://localhost:2525")
	v.SetDefault("Database.Driver", DriverSQLite)
	v.SetDefault("Database.DSN", "data/drive.db")
	v.SetDefault("Storage.CapacityBytes", DefaultCapacityBytes)
	v.SetDefault("Storage.EnforceQuota", false)
	v.SetDefault("Storage.TrashRetention", time.Duration(0))
	v.SetDefault("Storage.UploadWorkers", 4)
}

func isEnvSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q: must be %s or %s", c.Database.Driver, DriverSQLite, DriverPostgres)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database configuration is incomplete: dsn is required")
	}
	if c.Storage.CapacityBytes <= 0 {
		return fmt.Errorf("storage capacity must be positive, got %d", c.Storage.CapacityBytes)
	}
	if c.Storage.UploadWorkers <= 0 {
		c.Storage.UploadWorkers = 1
	}

	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")

	return nil
}

// MigrationURL возвращает адрес базы в формате golang-migrate
func (c *DatabaseConfig) MigrationURL() string {
	if c.Driver == DriverSQLite {
		return "sqlite3://" + c.DSN
	}
	return c.DSN
}
