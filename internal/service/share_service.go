package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
	"localdrive/internal/lock"
)

// ShareMessageFormat - текст, который уходит во внешний канал вместе со ссылкой
const ShareMessageFormat = "📁 I've shared a file with you: %s"

type ShareService struct {
	repo      ItemRepository
	locks     *lock.Keyed
	publisher domain.ContentPublisher
	targets   map[string]domain.ShareTarget
	baseURL   string
	events    emitter
}

func NewShareService(
	repo ItemRepository,
	locks *lock.Keyed,
	quotaService *StorageQuotaService,
	publisher domain.ContentPublisher,
	baseURL string,
	notifier Notifier,
	targets ...domain.ShareTarget,
) *ShareService {
	s := &ShareService{
		repo:      repo,
		locks:     locks,
		publisher: publisher,
		targets:   make(map[string]domain.ShareTarget, len(targets)),
		baseURL:   strings.TrimRight(baseURL, "/"),
		events:    emitter{notifier: notifier, quota: quotaService},
	}
	for _, t := range targets {
		s.targets[t.Name()] = t
	}
	return s
}

// Share выдает элементу shareId (повторный вызов сохраняет прежний) и возвращает ссылку
func (s *ShareService) Share(ctx context.Context, id string) (*domain.ShareLink, error) {
	if id == "" {
		return nil, domain.NewValidation("item id is required")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.repo.Get(ctx, domain.CollectionActive, id)
	if err != nil {
		return nil, err
	}

	if !item.IsShared() {
		item.ShareID = domain.StringPtr(uuid.NewString())
	}
	now := domain.Now()
	item.SharedAt = &now

	if err := s.repo.Put(ctx, domain.CollectionActive, item); err != nil {
		return nil, fmt.Errorf("failed to share item: %w", err)
	}

	log.Info().Str("item_id", id).Str("share_id", *item.ShareID).Msg("item shared")
	s.events.emit(ctx, domain.EventItemShared, id)

	return &domain.ShareLink{
		ItemID:   item.ID,
		ShareID:  *item.ShareID,
		URL:      domain.ShareLocator(s.baseURL, *item.ShareID),
		SharedAt: now,
	}, nil
}

// Resolve находит активный элемент по shareId
func (s *ShareService) Resolve(ctx context.Context, shareID string) (*domain.Item, error) {
	shareID = strings.TrimSpace(shareID)
	if shareID == "" {
		return nil, domain.NewValidation("share id is required")
	}
	return s.repo.FindByShareID(ctx, shareID)
}

// Publish загружает содержимое файла во внешнее хранилище.
// Локальное состояние не меняется ни при успехе, ни при ошибке.
func (s *ShareService) Publish(ctx context.Context, id string) (*domain.PublishedItem, error) {
	if s.publisher == nil {
		return nil, &domain.ExternalServiceError{Service: "publisher", Err: errors.New("no content publisher configured")}
	}

	item, err := s.repo.Get(ctx, domain.CollectionActive, id)
	if err != nil {
		return nil, err
	}
	if item.IsFolder {
		return nil, domain.NewValidation("folders cannot be published")
	}

	url, err := s.publisher.Publish(ctx, item.Name, item.MediaType, item.Content)
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "publisher", Err: err}
	}
	if url == "" {
		return nil, &domain.ExternalServiceError{Service: "publisher", Err: errors.New("response did not contain a locator")}
	}

	log.Info().Str("item_id", id).Str("url", url).Msg("item published")

	return &domain.PublishedItem{ItemID: id, URL: url, SharedAt: domain.Now()}, nil
}

// Send делится элементом и отправляет ссылку в канал target.
// Сбой доставки не ошибка операции: он возвращается в Delivery.Error.
func (s *ShareService) Send(ctx context.Context, id string, target string) (*domain.Delivery, error) {
	t, ok := s.targets[target]
	if !ok {
		return nil, domain.NewValidation("unknown share target %q", target)
	}

	link, err := s.Share(ctx, id)
	if err != nil {
		return nil, err
	}

	delivery := &domain.Delivery{
		Target:  target,
		Message: fmt.Sprintf(ShareMessageFormat, link.URL),
	}

	ref, err := t.Deliver(ctx, delivery.Message)
	if err != nil {
		log.Warn().Err(err).Str("target", target).Str("item_id", id).Msg("share delivery failed")
		delivery.Error = err.Error()
		return delivery, nil
	}
	delivery.Reference = ref

	return delivery, nil
}

// Targets - имена доступных каналов доставки
func (s *ShareService) Targets() []string {
	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export сериализует элементы в переносимый документ (JSON-массив).
// Без идентификаторов выгружается вся активная коллекция.
// Элементы ищутся сначала в активной коллекции, затем в корзине.
func (s *ShareService) Export(ctx context.Context, ids []string) ([]byte, error) {
	var items []domain.Item

	if len(ids) == 0 {
		all, err := s.repo.GetAll(ctx, domain.CollectionActive)
		if err != nil {
			return nil, err
		}
		items = all
	} else {
		items = make([]domain.Item, 0, len(ids))
		for _, id := range ids {
			item, err := s.find(ctx, id)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export document: %w", err)
	}
	return data, nil
}

func (s *ShareService) find(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.repo.Get(ctx, domain.CollectionActive, id)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.repo.Get(ctx, domain.CollectionTrash, id)
}

// Import проверяет документ целиком и только потом сохраняет элементы в активную коллекцию.
// Каждому элементу ставится новый sharedAt.
func (s *ShareService) Import(ctx context.Context, data []byte) ([]domain.Item, error) {
	items, err := DecodeExport(data)
	if err != nil {
		return nil, err
	}

	now := domain.Now()
	for i := range items {
		items[i].SharedAt = &now
		items[i].TrashedAt = nil
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		} else {
			items[i].CreatedAt = items[i].CreatedAt.UTC().Truncate(time.Microsecond)
		}
	}

	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		unlock := s.locks.Lock(id)
		defer unlock()
	}

	if err := checkImportTree(items, s.activeLookup(ctx)); err != nil {
		return nil, err
	}

	if err := s.repo.ImportItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to import items: %w", err)
	}

	log.Info().Int("count", len(items)).Msg("items imported")
	s.events.emit(ctx, domain.EventItemsImported, "")

	return items, nil
}

// DecodeExport разбирает документ экспорта: только массив объектов с полями Item
func DecodeExport(data []byte) ([]domain.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, domain.NewValidation("import document must be a JSON array")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, domain.NewValidation("malformed import document: %v", err)
	}

	items := make([]domain.Item, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 || r[0] != '{' {
			return nil, domain.NewValidation("record %d is not an object", i)
		}

		dec := json.NewDecoder(bytes.NewReader(r))
		dec.DisallowUnknownFields()

		var item domain.Item
		if err := dec.Decode(&item); err != nil {
			return nil, domain.NewValidation("record %d: %v", i, err)
		}
		if err := validateImported(&item); err != nil {
			return nil, domain.NewValidation("record %d: %v", i, err)
		}
		if seen[item.ID] {
			return nil, domain.NewValidation("record %d: duplicate id %s", i, item.ID)
		}
		seen[item.ID] = true

		items = append(items, item)
	}

	if err := checkImportTree(items, nil); err != nil {
		return nil, err
	}

	return items, nil
}

// lookupFunc ищет элемент вне документа; nil, nil - элемента нет
type lookupFunc func(id string) (*domain.Item, error)

func (s *ShareService) activeLookup(ctx context.Context) lookupFunc {
	return func(id string) (*domain.Item, error) {
		item, err := s.repo.Get(ctx, domain.CollectionActive, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return item, err
	}
}

// checkImportTree проверяет, что после импорта parentId по-прежнему образуют дерево:
// родитель - папка, элемент не становится собственным предком.
// Элементы документа перекрывают одноименные элементы хранилища. Отсутствующий родитель допустим.
func checkImportTree(items []domain.Item, lookup lookupFunc) error {
	byID := make(map[string]*domain.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	resolve := func(id string) (*domain.Item, error) {
		if item, ok := byID[id]; ok {
			return item, nil
		}
		if lookup == nil {
			return nil, nil
		}
		return lookup(id)
	}

	for i := range items {
		item := &items[i]
		if item.ParentID == nil {
			continue
		}
		if *item.ParentID == item.ID {
			return domain.NewValidation("item %s cannot be its own parent", item.ID)
		}

		parent, err := resolve(*item.ParentID)
		if err != nil {
			return fmt.Errorf("failed to check parent of %s: %w", item.ID, err)
		}
		if parent != nil && !parent.IsFolder {
			return domain.NewValidation("parent %s of item %s is not a folder", parent.ID, item.ID)
		}

		visited := map[string]bool{item.ID: true}
		for parent != nil && parent.ParentID != nil {
			if visited[parent.ID] {
				break
			}
			visited[parent.ID] = true
			if visited[*parent.ParentID] {
				return domain.NewValidation("item %s would become its own ancestor", item.ID)
			}
			if parent, err = resolve(*parent.ParentID); err != nil {
				return fmt.Errorf("failed to check ancestors of %s: %w", item.ID, err)
			}
		}
	}
	return nil
}

func validateImported(item *domain.Item) error {
	err := validation.ValidateStruct(item,
		validation.Field(&item.ID, validation.Required),
		validation.Field(&item.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&item.SizeBytes, validation.Min(int64(0))),
	)
	if err != nil {
		return err
	}

	if item.IsFolder {
		if item.SizeBytes != 0 || len(item.Content) != 0 {
			return errors.New("folder must not have content")
		}
		if item.MediaType == "" {
			item.MediaType = domain.FolderMediaType
		}
		return nil
	}

	if int64(len(item.Content)) != item.SizeBytes {
		return fmt.Errorf("size %d does not match content length %d", item.SizeBytes, len(item.Content))
	}
	return nil
}
