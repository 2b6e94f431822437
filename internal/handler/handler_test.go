package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localdrive/internal/config"
	"localdrive/internal/domain"
	"localdrive/internal/lock"
	"localdrive/internal/repository"
	"localdrive/internal/service"
	"localdrive/internal/sharetarget"
)

const testBaseURL = "http://drive.local"

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, string, string, []byte) (string, error) {
	return "https://cdn.example.com/published/x", nil
}

type testServer struct {
	router    chi.Router
	items     *service.ItemService
	shares    *service.ShareService
	quota     *service.StorageQuotaService
	hierarchy *service.HierarchyService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := repository.Open(context.Background(), &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "drive.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewItemRepository(db)
	locks := lock.NewKeyed()
	quota := service.NewStorageQuotaService(repo, config.DefaultCapacityBytes, false)
	items := service.NewItemService(repo, quota, locks, nil, 2)
	trash := service.NewTrashService(repo, quota, locks, nil)
	hierarchy := service.NewHierarchyService(repo)
	shares := service.NewShareService(repo, locks, quota, stubPublisher{}, testBaseURL, nil, sharetarget.WhatsApp{})

	router := NewRouter(Handlers{
		Items:  NewItemHandler(items, hierarchy, trash),
		Trash:  NewTrashHandler(trash),
		Shares: NewShareHandler(shares),
		Quota:  NewStorageQuotaHandler(quota),
	})

	return &testServer{router: router, items: items, shares: shares, quota: quota, hierarchy: hierarchy}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, parentID string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if parentID != "" {
		require.NoError(t, mw.WriteField("parent_id", parentID))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_FolderUploadTrashScenario(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/folders", map[string]any{"name": "Docs"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	folder := decode[domain.Item](t, rec)

	rec = srv.upload(t, folder.ID, map[string]string{"a.txt": strings.Repeat("x", 10000)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := decode[domain.UploadResult](t, rec)
	require.Len(t, uploaded.Items, 1)
	file := uploaded.Items[0]
	assert.Nil(t, file.Content)

	rec = srv.do(t, http.MethodGet, "/v1/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[[]domain.Item](t, rec)
	require.Len(t, root, 1)
	assert.True(t, root[0].IsFolder)

	rec = srv.do(t, http.MethodGet, "/v1/items?parent_id="+folder.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Item](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/v1/quota", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(10000), decode[domain.QuotaInfo](t, rec).UsedSpace)

	rec = srv.do(t, http.MethodDelete, "/v1/items/"+file.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, file.ID, decode[domain.Item](t, rec).ID)

	rec = srv.do(t, http.MethodDelete, "/v1/items/"+file.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/trash", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trash := decode[[]domain.Item](t, rec)
	require.Len(t, trash, 1)
	assert.Equal(t, "a.txt", trash[0].Name)

	rec = srv.do(t, http.MethodGet, "/v1/quota", nil)
	assert.Zero(t, decode[domain.QuotaInfo](t, rec).UsedSpace)

	rec = srv.do(t, http.MethodPost, "/v1/trash/"+file.ID+"/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v1/trash/"+file.ID+"/undo", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/quota", nil)
	assert.Equal(t, int64(10000), decode[domain.QuotaInfo](t, rec).UsedSpace)
}

func TestRouter_PermanentDelete(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.upload(t, "", map[string]string{"a.txt": "abc"})
	require.Equal(t, http.StatusCreated, rec.Code)
	file := decode[domain.UploadResult](t, rec).Items[0]

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodDelete, "/v1/items/"+file.ID, nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodDelete, "/v1/trash/"+file.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodPost, "/v1/trash/"+file.ID+"/restore", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/v1/items/"+file.ID, nil).Code)
}

func TestRouter_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "empty folder name", method: http.MethodPost, path: "/v1/folders", body: map[string]any{"name": ""}, want: http.StatusBadRequest},
		{name: "broken json", method: http.MethodPost, path: "/v1/folders", body: "{", want: http.StatusBadRequest},
		{name: "missing item", method: http.MethodGet, path: "/v1/items/nope", want: http.StatusNotFound},
		{name: "missing share", method: http.MethodGet, path: "/share/nope", want: http.StatusNotFound},
		{name: "unknown target", method: http.MethodPost, path: "/v1/items/nope/send", body: map[string]any{"target": "fax"}, want: http.StatusBadRequest},
		{name: "malformed import", method: http.MethodPost, path: "/v1/import", body: `{"not":"an array"}`, want: http.StatusBadRequest},
		{name: "bad recent limit", method: http.MethodGet, path: "/v1/items/recent?limit=x", want: http.StatusBadRequest},
		{name: "upload without files", method: http.MethodPost, path: "/v1/files", body: "", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_ShareAndResolve(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.upload(t, "", map[string]string{"hello.txt": "hello world"})
	require.Equal(t, http.StatusCreated, rec.Code)
	file := decode[domain.UploadResult](t, rec).Items[0]

	rec = srv.do(t, http.MethodPost, "/v1/items/"+file.ID+"/share", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	link := decode[domain.ShareLink](t, rec)
	assert.Equal(t, testBaseURL+"/share/"+link.ShareID, link.URL)

	rec = srv.do(t, http.MethodPost, "/v1/items/"+file.ID+"/share", nil)
	assert.Equal(t, link.ShareID, decode[domain.ShareLink](t, rec).ShareID)

	rec = srv.do(t, http.MethodGet, "/share/"+link.ShareID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "hello.txt")

	rec = srv.do(t, http.MethodGet, "/v1/shares/"+link.ShareID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, file.ID, decode[domain.Item](t, rec).ID)

	rec = srv.do(t, http.MethodGet, "/v1/items/shared", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Item](t, rec), 1)

	rec = srv.do(t, http.MethodPost, "/v1/items/"+file.ID+"/send", map[string]any{"target": "whatsapp"})
	require.Equal(t, http.StatusOK, rec.Code)
	delivery := decode[domain.Delivery](t, rec)
	assert.Contains(t, delivery.Reference, "https://wa.me/?text=")

	rec = srv.do(t, http.MethodPost, "/v1/items/"+file.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.example.com/published/x", decode[domain.PublishedItem](t, rec).URL)

	rec = srv.do(t, http.MethodGet, "/v1/shares/targets", nil)
	assert.Equal(t, []string{"whatsapp"}, decode[[]string](t, rec))
}

func TestRouter_RenameMoveDownload(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/folders", map[string]any{"name": "Docs"})
	folder := decode[domain.Item](t, rec)

	rec = srv.upload(t, "", map[string]string{"a.txt": "abc"})
	file := decode[domain.UploadResult](t, rec).Items[0]

	rec = srv.do(t, http.MethodPut, "/v1/items/"+file.ID+"/rename", map[string]any{"name": "b.txt"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b.txt", decode[domain.Item](t, rec).Name)

	rec = srv.do(t, http.MethodPut, "/v1/items/"+file.ID+"/move", map[string]any{"parent_id": folder.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPut, "/v1/items/"+folder.ID+"/move", map[string]any{"parent_id": folder.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/items/"+file.ID+"/content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/v1/items?parent_id="+folder.ID+"&q=B.TXT", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Item](t, rec), 1)
}

func TestRouter_BulkDeleteAndEmptyTrash(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.upload(t, "", map[string]string{"a.txt": "a", "b.txt": "b"})
	require.Equal(t, http.StatusCreated, rec.Code)
	items := decode[domain.UploadResult](t, rec).Items
	require.Len(t, items, 2)

	rec = srv.do(t, http.MethodPost, "/v1/items/bulk-delete", map[string]any{"ids": []string{items[0].ID, "missing", items[1].ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Item](t, rec), 2)

	rec = srv.do(t, http.MethodPost, "/v1/trash/empty", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{"deleted": 2}, decode[map[string]int64](t, rec))
}

func TestRouter_ExportImport(t *testing.T) {
	source := newTestServer(t)

	rec := source.upload(t, "", map[string]string{"report.txt": "quarterly"})
	file := decode[domain.UploadResult](t, rec).Items[0]
	rec = source.do(t, http.MethodPost, "/v1/items/"+file.ID+"/share", nil)
	link := decode[domain.ShareLink](t, rec)

	rec = source.do(t, http.MethodPost, "/v1/export", map[string]any{"ids": []string{file.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	doc := rec.Body.String()

	target := newTestServer(t)
	rec = target.do(t, http.MethodPost, "/v1/import", doc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = target.do(t, http.MethodGet, "/share/"+link.ShareID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "quarterly", rec.Body.String())
}
