package service

import (
	"context"
	"fmt"

	"localdrive/internal/domain"
)

// StorageQuotaService считает квоту по активной коллекции.
// Ничего не хранит: занятый объем всегда выводится из данных.
type StorageQuotaService struct {
	repo     ItemRepository
	capacity int64
	enforce  bool
}

func NewStorageQuotaService(repo ItemRepository, capacity int64, enforce bool) *StorageQuotaService {
	return &StorageQuotaService{
		repo:     repo,
		capacity: capacity,
		enforce:  enforce,
	}
}

func (s *StorageQuotaService) GetQuotaInfo(ctx context.Context) (*domain.QuotaInfo, error) {
	used, err := s.repo.SumActiveSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	info := domain.NewQuotaInfo(used, s.capacity)
	return &info, nil
}

// CheckSpaceAvailable проверяет, поместятся ли requiredBytes.
// Если ограничение выключено, место есть всегда.
func (s *StorageQuotaService) CheckSpaceAvailable(ctx context.Context, requiredBytes int64) (bool, error) {
	if !s.enforce {
		return true, nil
	}

	used, err := s.repo.SumActiveSize(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get quota: %w", err)
	}

	return used+requiredBytes <= s.capacity, nil
}
