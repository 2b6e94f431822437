package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
	"localdrive/internal/lock"
)

type TrashService struct {
	repo         ItemRepository
	quotaService *StorageQuotaService
	locks        *lock.Keyed
	events       emitter
}

func NewTrashService(
	repo ItemRepository,
	quotaService *StorageQuotaService,
	locks *lock.Keyed,
	notifier Notifier,
) *TrashService {
	return &TrashService{
		repo:         repo,
		quotaService: quotaService,
		locks:        locks,
		events:       emitter{notifier: notifier, quota: quotaService},
	}
}

// GetTrashItems возвращает содержимое корзины, последние удаленные первыми
func (s *TrashService) GetTrashItems(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.GetAll(ctx, domain.CollectionTrash)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return trashedAt(items[i]).After(trashedAt(items[j]))
	})
	return items, nil
}

func trashedAt(item domain.Item) time.Time {
	if item.TrashedAt == nil {
		return time.Time{}
	}
	return *item.TrashedAt
}

// MoveToTrash перемещает элемент в корзину и возвращает его для отмены.
// Если элемента нет в активной коллекции, возвращает nil без ошибки.
func (s *TrashService) MoveToTrash(ctx context.Context, id string) (*domain.Item, error) {
	if id == "" {
		return nil, domain.NewValidation("item id is required")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.repo.MoveToTrash(ctx, id, domain.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to move item to trash: %w", err)
	}

	log.Info().Str("item_id", id).Msg("item moved to trash")
	s.events.emit(ctx, domain.EventItemTrashed, id)

	return item, nil
}

// Undo отменяет перемещение в корзину. Повторный вызов ничего не делает.
func (s *TrashService) Undo(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if item != nil {
		log.Info().Str("item_id", id).Msg("trash undone")
	}
	return item, nil
}

// BulkDelete перемещает в корзину набор элементов по очереди.
// Отсутствующие идентификаторы пропускаются.
func (s *TrashService) BulkDelete(ctx context.Context, ids []string) ([]domain.Item, error) {
	trashed := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.MoveToTrash(ctx, id)
		if err != nil {
			return trashed, err
		}
		if item == nil {
			log.Debug().Str("item_id", id).Msg("bulk delete: item not found, skipped")
			continue
		}
		trashed = append(trashed, *item)
	}
	return trashed, nil
}

// RestoreFromTrash возвращает элемент из корзины. Если в корзине его нет, возвращает nil.
func (s *TrashService) RestoreFromTrash(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if item != nil {
		log.Info().Str("item_id", id).Msg("item restored")
	}
	return item, nil
}

func (s *TrashService) restore(ctx context.Context, id string) (*domain.Item, error) {
	if id == "" {
		return nil, domain.NewValidation("item id is required")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.repo.Restore(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to restore item: %w", err)
	}

	s.events.emit(ctx, domain.EventItemRestored, id)
	return item, nil
}

// DeletePermanently окончательно удаляет элемент из корзины.
// Активную коллекцию не трогает.
func (s *TrashService) DeletePermanently(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, domain.NewValidation("item id is required")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	deleted, err := s.repo.Delete(ctx, domain.CollectionTrash, id)
	if err != nil {
		return false, err
	}

	if deleted {
		log.Info().Str("item_id", id).Msg("item deleted permanently")
		s.events.emit(ctx, domain.EventItemDeleted, id)
	}
	return deleted, nil
}

// EmptyTrash полностью очищает корзину
func (s *TrashService) EmptyTrash(ctx context.Context) (int64, error) {
	n, err := s.repo.EmptyTrash(ctx)
	if err != nil {
		return 0, err
	}

	log.Info().Int64("deleted", n).Msg("trash emptied")
	s.events.emit(ctx, domain.EventTrashEmptied, "")
	return n, nil
}

// AutoCleanup удаляет элементы, пролежавшие в корзине дольше retention.
// Нулевой срок отключает очистку.
func (s *TrashService) AutoCleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}

	n, err := s.repo.PurgeTrash(ctx, domain.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to run trash cleanup: %w", err)
	}

	if n > 0 {
		log.Printf("[TrashService] auto cleanup removed %d items", n)
		s.events.emit(ctx, domain.EventTrashEmptied, "")
	}
	return n, nil
}
