package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"localdrive/internal/config"
	"localdrive/internal/domain"
	"localdrive/internal/lock"
	"localdrive/internal/repository"
	"localdrive/internal/sharetarget"
)

const testBaseURL = "http://drive.local"

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Notify(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fakePublisher struct {
	url string
	err error
}

func (f *fakePublisher) Publish(_ context.Context, name string, _ string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type testEnv struct {
	repo      *repository.ItemRepository
	quota     *StorageQuotaService
	items     *ItemService
	trash     *TrashService
	hierarchy *HierarchyService
	shares    *ShareService
	publisher *fakePublisher
	events    *recorder
	locks     *lock.Keyed
}

func newTestEnv(t *testing.T, opts ...func(*config.StorageConfig)) *testEnv {
	t.Helper()

	storage := config.StorageConfig{CapacityBytes: config.DefaultCapacityBytes, UploadWorkers: 4}
	for _, o := range opts {
		o(&storage)
	}

	db, err := repository.Open(context.Background(), &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "drive.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewItemRepository(db)
	locks := lock.NewKeyed()
	events := &recorder{}
	publisher := &fakePublisher{url: "https://cdn.example.com/published/a.txt"}

	quota := NewStorageQuotaService(repo, storage.CapacityBytes, storage.EnforceQuota)

	return &testEnv{
		repo:      repo,
		quota:     quota,
		items:     NewItemService(repo, quota, locks, events, storage.UploadWorkers),
		trash:     NewTrashService(repo, quota, locks, events),
		hierarchy: NewHierarchyService(repo),
		shares: NewShareService(repo, locks, quota, publisher, testBaseURL, events,
			sharetarget.WhatsApp{}, sharetarget.Log{}),
		publisher: publisher,
		events:    events,
		locks:     locks,
	}
}

func (e *testEnv) usedSpace(t *testing.T) int64 {
	t.Helper()
	info, err := e.quota.GetQuotaInfo(context.Background())
	require.NoError(t, err)
	return info.UsedSpace
}

func (e *testEnv) upload(t *testing.T, parentID *string, name string, size int) domain.Item {
	t.Helper()
	res, err := e.items.Upload(context.Background(), parentID, []domain.Blob{{
		Name:      name,
		MediaType: "text/plain",
		Data:      make([]byte, size),
	}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	return res.Items[0]
}
