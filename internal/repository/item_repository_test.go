package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localdrive/internal/config"
	"localdrive/internal/domain"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "drive.db"),
	}
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newFile(id, name string, parentID *string, data string) domain.Item {
	return domain.Item{
		ID:        id,
		Name:      name,
		SizeBytes: int64(len(data)),
		MediaType: "text/plain",
		Content:   []byte(data),
		ParentID:  parentID,
		CreatedAt: domain.Now(),
	}
}

func TestOpen_RunsMigrationsTwice(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "nested", "drive.db"),
	}

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// повторное открытие не должно пересоздавать коллекции
	db, err = Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('items', 'trashed_items') ORDER BY name`))
	assert.Equal(t, []string{"items", "trashed_items"}, tables)
}

func TestItemRepository_PutGet(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	item := newFile("f1", "notes.txt", nil, "hello")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &item))

	got, err := repo.Get(ctx, domain.CollectionActive, "f1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", got.Name)
	assert.Equal(t, int64(5), got.SizeBytes)
	assert.Equal(t, "hello", string(got.Content))
	assert.Nil(t, got.ParentID)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))

	item.Name = "renamed.txt"
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &item))

	got, err = repo.Get(ctx, domain.CollectionActive, "f1")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", got.Name)

	all, err := repo.GetAll(ctx, domain.CollectionActive)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestItemRepository_GetMissing(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	_, err := repo.Get(context.Background(), domain.CollectionTrash, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_UnknownCollection(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	_, err := repo.GetAll(context.Background(), domain.Collection("files; DROP TABLE items"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestItemRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	item := newFile("f1", "a.txt", nil, "a")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &item))

	deleted, err := repo.Delete(ctx, domain.CollectionActive, "f1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, domain.CollectionActive, "f1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestItemRepository_ListChildren(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	folder := domain.Item{ID: "d1", Name: "Docs", MediaType: domain.FolderMediaType, IsFolder: true, CreatedAt: domain.Now()}
	inRoot := newFile("f1", "root.txt", nil, "r")
	inDocs := newFile("f2", "doc.txt", domain.StringPtr("d1"), "d")
	for _, it := range []domain.Item{folder, inRoot, inDocs} {
		it := it
		require.NoError(t, repo.Put(ctx, domain.CollectionActive, &it))
	}

	root, err := repo.ListChildren(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "f1"}, ids(root))

	docs, err := repo.ListChildren(ctx, domain.StringPtr("d1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"f2"}, ids(docs))

	empty, err := repo.ListChildren(ctx, domain.StringPtr("missing"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestItemRepository_MoveToTrashAndRestore(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	item := newFile("f1", "a.txt", nil, "abc")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &item))

	at := domain.Now()
	trashed, err := repo.MoveToTrash(ctx, "f1", at)
	require.NoError(t, err)
	require.NotNil(t, trashed.TrashedAt)
	assert.True(t, at.Equal(*trashed.TrashedAt))

	_, err = repo.Get(ctx, domain.CollectionActive, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inTrash, err := repo.Get(ctx, domain.CollectionTrash, "f1")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(inTrash.Content))
	require.NotNil(t, inTrash.TrashedAt)

	restored, err := repo.Restore(ctx, "f1")
	require.NoError(t, err)
	assert.Nil(t, restored.TrashedAt)

	active, err := repo.Get(ctx, domain.CollectionActive, "f1")
	require.NoError(t, err)
	assert.Nil(t, active.TrashedAt)
	assert.True(t, item.CreatedAt.Equal(active.CreatedAt))

	_, err = repo.Get(ctx, domain.CollectionTrash, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_MoveToTrashMissing(t *testing.T) {
	repo := NewItemRepository(newTestDB(t))

	_, err := repo.MoveToTrash(context.Background(), "ghost", domain.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Restore(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_ShareIDUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	a := newFile("a", "a.txt", nil, "a")
	a.ShareID = domain.StringPtr("s1")
	b := newFile("b", "b.txt", nil, "b")
	b.ShareID = domain.StringPtr("s1")

	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &a))
	err := repo.Put(ctx, domain.CollectionActive, &b)
	assert.ErrorIs(t, err, domain.ErrConflict)

	found, err := repo.FindByShareID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", found.ID)

	_, err = repo.FindByShareID(ctx, "s2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_SumActiveSize(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	total, err := repo.SumActiveSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	a := newFile("a", "a.txt", nil, "12345")
	b := newFile("b", "b.txt", nil, "123")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &a))
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &b))

	total, err = repo.SumActiveSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)

	_, err = repo.MoveToTrash(ctx, "a", domain.Now())
	require.NoError(t, err)

	total, err = repo.SumActiveSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestItemRepository_ImportItems(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	old := newFile("a", "old.txt", nil, "old")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &old))
	_, err := repo.MoveToTrash(ctx, "a", domain.Now())
	require.NoError(t, err)

	items := []domain.Item{newFile("a", "new.txt", nil, "new"), newFile("b", "b.txt", nil, "b")}
	require.NoError(t, repo.ImportItems(ctx, items))

	got, err := repo.Get(ctx, domain.CollectionActive, "a")
	require.NoError(t, err)
	assert.Equal(t, "new.txt", got.Name)

	_, err = repo.Get(ctx, domain.CollectionTrash, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_ImportItemsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	existing := newFile("x", "x.txt", nil, "x")
	existing.ShareID = domain.StringPtr("taken")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &existing))

	clash := newFile("c", "c.txt", nil, "c")
	clash.ShareID = domain.StringPtr("taken")
	items := []domain.Item{newFile("a", "a.txt", nil, "a"), clash}

	err := repo.ImportItems(ctx, items)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.Get(ctx, domain.CollectionActive, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_ImportItemsRejectsTrashedShareID(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	trashed := newFile("t", "t.txt", nil, "t")
	trashed.ShareID = domain.StringPtr("kept")
	require.NoError(t, repo.Put(ctx, domain.CollectionActive, &trashed))
	_, err := repo.MoveToTrash(ctx, "t", domain.Now())
	require.NoError(t, err)

	clash := newFile("c", "c.txt", nil, "c")
	clash.ShareID = domain.StringPtr("kept")
	assert.ErrorIs(t, repo.ImportItems(ctx, []domain.Item{clash}), domain.ErrConflict)

	// тот же элемент со своим shareId импортируется поверх копии в корзине
	same := newFile("t", "t2.txt", nil, "t")
	same.ShareID = domain.StringPtr("kept")
	require.NoError(t, repo.ImportItems(ctx, []domain.Item{same}))

	_, err = repo.Get(ctx, domain.CollectionTrash, "t")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemRepository_PurgeAndEmptyTrash(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(newTestDB(t))

	for _, id := range []string{"a", "b", "c"} {
		it := newFile(id, id+".txt", nil, id)
		require.NoError(t, repo.Put(ctx, domain.CollectionActive, &it))
	}

	now := domain.Now()
	_, err := repo.MoveToTrash(ctx, "a", now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = repo.MoveToTrash(ctx, "b", now)
	require.NoError(t, err)
	_, err = repo.MoveToTrash(ctx, "c", now)
	require.NoError(t, err)

	n, err := repo.PurgeTrash(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	trash, err := repo.GetAll(ctx, domain.CollectionTrash)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func ids(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
