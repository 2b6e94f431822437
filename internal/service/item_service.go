package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"localdrive/internal/domain"
	"localdrive/internal/lock"
)

const (
	maxNameLength    = 255
	defaultMediaType = "application/octet-stream"
)

type ItemService struct {
	repo          ItemRepository
	quotaService  *StorageQuotaService
	locks         *lock.Keyed
	events        emitter
	uploadWorkers int
}

func NewItemService(
	repo ItemRepository,
	quotaService *StorageQuotaService,
	locks *lock.Keyed,
	notifier Notifier,
	uploadWorkers int,
) *ItemService {
	if uploadWorkers <= 0 {
		uploadWorkers = 1
	}
	return &ItemService{
		repo:          repo,
		quotaService:  quotaService,
		locks:         locks,
		events:        emitter{notifier: notifier, quota: quotaService},
		uploadWorkers: uploadWorkers,
	}
}

func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required.Error("name is required"),
		validation.RuneLength(1, maxNameLength),
	)
	if err != nil {
		return domain.NewValidation("invalid name: %v", err)
	}
	return nil
}

// checkParent проверяет, что родитель (если он есть) - папка.
// Отсутствующий родитель допустим: элемент просто окажется "осиротевшим".
func (s *ItemService) checkParent(ctx context.Context, parentID *string) error {
	if parentID == nil {
		return nil
	}

	parent, err := s.repo.Get(ctx, domain.CollectionActive, *parentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("parent_id", *parentID).Msg("parent folder is not in the active collection")
			return nil
		}
		return err
	}
	if !parent.IsFolder {
		return domain.NewValidation("parent %s is not a folder", *parentID)
	}
	return nil
}

// CreateFolder создает папку в текущей папке parentID
func (s *ItemService) CreateFolder(ctx context.Context, name string, parentID *string) (*domain.Item, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, parentID); err != nil {
		return nil, err
	}

	folder := &domain.Item{
		ID:        uuid.NewString(),
		Name:      name,
		MediaType: domain.FolderMediaType,
		IsFolder:  true,
		ParentID:  parentID,
		CreatedAt: domain.Now(),
	}

	if err := s.repo.Put(ctx, domain.CollectionActive, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	log.Info().Str("item_id", folder.ID).Str("name", folder.Name).Msg("folder created")
	s.events.emit(ctx, domain.EventItemCreated, folder.ID)

	return folder, nil
}

type uploadOutcome struct {
	index int
	item  *domain.Item
	err   error
}

// Upload сохраняет пакет файлов в папку parentID.
// Каждый файл записывается независимо: ошибка одного не откатывает остальные.
// Возвращаемая ошибка (если есть) - *multierror.Error со всеми сбоями.
func (s *ItemService) Upload(ctx context.Context, parentID *string, blobs []domain.Blob) (*domain.UploadResult, error) {
	if len(blobs) == 0 {
		return nil, domain.NewValidation("no files to upload")
	}
	if err := s.checkParent(ctx, parentID); err != nil {
		return nil, err
	}

	var required int64
	for _, b := range blobs {
		required += int64(len(b.Data))
	}
	ok, err := s.quotaService.CheckSpaceAvailable(ctx, required)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewValidation("storage quota exceeded: %d bytes required", required)
	}

	p := pool.NewWithResults[uploadOutcome]().WithMaxGoroutines(s.uploadWorkers)
	for i, blob := range blobs {
		i, blob := i, blob
		p.Go(func() uploadOutcome {
			item, err := s.uploadOne(ctx, parentID, blob)
			return uploadOutcome{index: i, item: item, err: err}
		})
	}
	outcomes := p.Wait()
	sort.Slice(outcomes, func(a, b int) bool { return outcomes[a].index < outcomes[b].index })

	result := &domain.UploadResult{Items: make([]domain.Item, 0, len(blobs))}
	var merr *multierror.Error
	for _, o := range outcomes {
		if o.err != nil {
			name := blobs[o.index].Name
			log.Printf("[ItemService] failed to upload %q: %v", name, o.err)
			result.Failed = append(result.Failed, domain.UploadError{Name: name, Message: o.err.Error()})
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", name, o.err))
			continue
		}
		result.Items = append(result.Items, *o.item)
		s.events.emit(ctx, domain.EventItemCreated, o.item.ID)
	}

	log.Info().Int("uploaded", len(result.Items)).Int("failed", len(result.Failed)).Msg("upload finished")

	return result, merr.ErrorOrNil()
}

func (s *ItemService) uploadOne(ctx context.Context, parentID *string, blob domain.Blob) (*domain.Item, error) {
	name := strings.TrimSpace(blob.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	mediaType := blob.MediaType
	if mediaType == "" {
		mediaType = defaultMediaType
	}

	item := &domain.Item{
		ID:        uuid.NewString(),
		Name:      name,
		SizeBytes: int64(len(blob.Data)),
		MediaType: mediaType,
		Content:   blob.Data,
		ParentID:  parentID,
		CreatedAt: domain.Now(),
	}

	if err := s.repo.Put(ctx, domain.CollectionActive, item); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	return item, nil
}

// Get возвращает активный элемент вместе с содержимым
func (s *ItemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	if id == "" {
		return nil, domain.NewValidation("item id is required")
	}
	return s.repo.Get(ctx, domain.CollectionActive, id)
}

func (s *ItemService) Rename(ctx context.Context, id string, name string) (*domain.Item, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.repo.Get(ctx, domain.CollectionActive, id)
	if err != nil {
		return nil, err
	}

	item.Name = name
	if err := s.repo.Put(ctx, domain.CollectionActive, item); err != nil {
		return nil, fmt.Errorf("failed to rename item: %w", err)
	}

	s.events.emit(ctx, domain.EventItemUpdated, id)
	return item, nil
}

// Move переносит элемент в папку newParentID (nil - корень).
// Папку нельзя сделать потомком самой себя.
func (s *ItemService) Move(ctx context.Context, id string, newParentID *string) (*domain.Item, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.repo.Get(ctx, domain.CollectionActive, id)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == id {
			return nil, domain.NewConflict("cannot move item %s into itself", id)
		}

		parent, err := s.repo.Get(ctx, domain.CollectionActive, *newParentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder {
			return nil, domain.NewValidation("target %s is not a folder", *newParentID)
		}

		if item.IsFolder {
			if err := s.checkCycle(ctx, id, parent); err != nil {
				return nil, err
			}
		}
	}

	item.ParentID = newParentID
	if err := s.repo.Put(ctx, domain.CollectionActive, item); err != nil {
		return nil, fmt.Errorf("failed to move item: %w", err)
	}

	s.events.emit(ctx, domain.EventItemUpdated, id)
	return item, nil
}

// checkCycle поднимается от нового родителя к корню и ищет среди предков перемещаемую папку
func (s *ItemService) checkCycle(ctx context.Context, folderID string, newParent *domain.Item) error {
	visited := map[string]bool{newParent.ID: true}
	current := newParent

	for current.ParentID != nil {
		ancestorID := *current.ParentID
		if ancestorID == folderID {
			return domain.NewConflict("cannot move folder %s into its own descendant", folderID)
		}
		if visited[ancestorID] {
			return domain.NewConflict("folder hierarchy above %s already contains a cycle", newParent.ID)
		}
		visited[ancestorID] = true

		ancestor, err := s.repo.Get(ctx, domain.CollectionActive, ancestorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		current = ancestor
	}

	return nil
}
