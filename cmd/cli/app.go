package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"localdrive/internal/config"
	"localdrive/internal/domain"
	"localdrive/internal/lock"
	"localdrive/internal/repository"
	"localdrive/internal/service"
	"localdrive/internal/service/s3"
	"localdrive/internal/sharetarget"
)

type options struct {
	configPath   string
	s3ConfigPath string
	debug        bool
}

// app - собранные зависимости одного запуска
type app struct {
	cfg       *config.Config
	db        *sqlx.DB
	repo      *repository.ItemRepository
	quota     *service.StorageQuotaService
	items     *service.ItemService
	trash     *service.TrashService
	hierarchy *service.HierarchyService
	shares    *service.ShareService
}

// newApp собирает сервисы. Объектное хранилище подключается только при publish.
func newApp(ctx context.Context, opts *options, notifier service.Notifier, publish bool) (*app, error) {
	cfg, err := config.NewConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := repository.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var publisher domain.ContentPublisher
	if publish {
		publisher, err = newPublisher(ctx, opts.s3ConfigPath)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	repo := repository.NewItemRepository(db)
	locks := lock.NewKeyed()
	quota := service.NewStorageQuotaService(repo, cfg.Storage.CapacityBytes, cfg.Storage.EnforceQuota)

	return &app{
		cfg:       cfg,
		db:        db,
		repo:      repo,
		quota:     quota,
		items:     service.NewItemService(repo, quota, locks, notifier, cfg.Storage.UploadWorkers),
		trash:     service.NewTrashService(repo, quota, locks, notifier),
		hierarchy: service.NewHierarchyService(repo),
		shares: service.NewShareService(repo, locks, quota, publisher, cfg.Server.BaseURL, notifier,
			sharetarget.WhatsApp{}, sharetarget.Log{}),
	}, nil
}

// newPublisher возвращает nil, если объектное хранилище не настроено
func newPublisher(ctx context.Context, path string) (domain.ContentPublisher, error) {
	s3Config, err := s3.NewConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	if s3Config == nil {
		log.Info().Msg("object storage is not configured, publishing is disabled")
		return nil, nil
	}

	client, err := s3.NewClient(ctx, s3Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return s3.NewPublisher(client), nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}
}
