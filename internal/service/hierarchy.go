package service

import (
	"context"
	"sort"
	"strings"

	"localdrive/internal/domain"
)

const DefaultRecentLimit = 30

// HierarchyService отвечает на вопросы о содержимом папок.
// Путь навигации он не восстанавливает: его хранит Navigator на стороне вызывающего.
type HierarchyService struct {
	repo ItemRepository
}

func NewHierarchyService(repo ItemRepository) *HierarchyService {
	return &HierarchyService{repo: repo}
}

// ListChildren возвращает содержимое папки: сначала папки, затем файлы, по имени
func (s *HierarchyService) ListChildren(ctx context.Context, parentID *string) ([]domain.Item, error) {
	items, err := s.repo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	sortForListing(items)
	return items, nil
}

// Browse собирает содержимое текущей папки навигатора вместе с хлебными крошками
func (s *HierarchyService) Browse(ctx context.Context, nav *Navigator) (*domain.FolderContent, error) {
	items, err := s.ListChildren(ctx, nav.Current())
	if err != nil {
		return nil, err
	}

	content := &domain.FolderContent{
		Path:    nav.Path(),
		Folders: []domain.Item{},
		Files:   []domain.Item{},
	}
	for _, item := range items {
		if item.IsFolder {
			content.Folders = append(content.Folders, item)
		} else {
			content.Files = append(content.Files, item)
		}
	}
	return content, nil
}

// Search ищет в папке элементы, у которых имя или тип содержат query без учета регистра.
// Пустой запрос возвращает всё содержимое папки.
func (s *HierarchyService) Search(ctx context.Context, parentID *string, query string) ([]domain.Item, error) {
	items, err := s.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return items, nil
	}

	found := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Matches(query) {
			found = append(found, item)
		}
	}
	return found, nil
}

// Recent возвращает последние limit элементов корня (файлы и папки), новые первыми
func (s *HierarchyService) Recent(ctx context.Context, limit int) ([]domain.Item, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	items, err := s.repo.ListChildren(ctx, nil)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Shared возвращает элементы папки, у которых есть shareId
func (s *HierarchyService) Shared(ctx context.Context, parentID *string) ([]domain.Item, error) {
	items, err := s.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}

	shared := make([]domain.Item, 0)
	for _, item := range items {
		if item.IsShared() {
			shared = append(shared, item)
		}
	}
	return shared, nil
}

func sortForListing(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsFolder != items[j].IsFolder {
			return items[i].IsFolder
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}
