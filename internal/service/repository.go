package service

import (
	"context"
	"time"

	"localdrive/internal/domain"
)

// ItemRepository - хранилище элементов, которым пользуются сервисы.
// Реализация: repository.ItemRepository.
type ItemRepository interface {
	Get(ctx context.Context, c domain.Collection, id string) (*domain.Item, error)
	GetAll(ctx context.Context, c domain.Collection) ([]domain.Item, error)
	Put(ctx context.Context, c domain.Collection, item *domain.Item) error
	Delete(ctx context.Context, c domain.Collection, id string) (bool, error)
	ListChildren(ctx context.Context, parentID *string) ([]domain.Item, error)
	FindByShareID(ctx context.Context, shareID string) (*domain.Item, error)
	SumActiveSize(ctx context.Context) (int64, error)
	MoveToTrash(ctx context.Context, id string, at time.Time) (*domain.Item, error)
	Restore(ctx context.Context, id string) (*domain.Item, error)
	ImportItems(ctx context.Context, items []domain.Item) error
	PurgeTrash(ctx context.Context, before time.Time) (int64, error)
	EmptyTrash(ctx context.Context) (int64, error)
}
