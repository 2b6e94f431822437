package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
	"localdrive/internal/service"
)

const maxUploadMemory = 100 << 20

type ItemHandler struct {
	itemService      *service.ItemService
	hierarchyService *service.HierarchyService
	trashService     *service.TrashService
}

func NewItemHandler(
	itemService *service.ItemService,
	hierarchyService *service.HierarchyService,
	trashService *service.TrashService,
) *ItemHandler {
	return &ItemHandler{
		itemService:      itemService,
		hierarchyService: hierarchyService,
		trashService:     trashService,
	}
}

// ListItems возвращает содержимое папки parent_id, с фильтром q если он задан
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	parentID := optionalID(r.URL.Query().Get("parent_id"))

	items, err := h.hierarchyService.Search(r.Context(), parentID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withoutContent(items))
}

func (h *ItemHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := h.hierarchyService.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withoutContent(items))
}

func (h *ItemHandler) Shared(w http.ResponseWriter, r *http.Request) {
	items, err := h.hierarchyService.Shared(r.Context(), optionalID(r.URL.Query().Get("parent_id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withoutContent(items))
}

func (h *ItemHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name"`
		ParentID *string `json:"parent_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	folder, err := h.itemService.CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// UploadFiles принимает multipart-форму с полями files и parent_id
func (h *ItemHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	blobs := make([]domain.Blob, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open %s", fh.Filename), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read %s", fh.Filename), http.StatusBadRequest)
			return
		}

		blobs = append(blobs, domain.Blob{
			Name:      fh.Filename,
			MediaType: fh.Header.Get("Content-Type"),
			Data:      data,
		})
	}

	result, err := h.itemService.Upload(r.Context(), optionalID(r.FormValue("parent_id")), blobs)
	if result == nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if err != nil {
		log.Warn().Err(err).Msg("upload finished with failures")
		status = http.StatusMultiStatus
		if len(result.Items) == 0 {
			status = http.StatusBadRequest
		}
	}

	result.Items = withoutContent(result.Items)
	writeJSON(w, status, result)
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	item.Content = nil
	writeJSON(w, http.StatusOK, item)
}

// DownloadContent отдает содержимое файла как есть
func (h *ItemHandler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	serveContent(w, item)
}

func serveContent(w http.ResponseWriter, item *domain.Item) {
	if item.IsFolder {
		http.Error(w, "Folders have no content", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", item.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(item.Content)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": item.Name}))
	w.WriteHeader(http.StatusOK)
	w.Write(item.Content)
}

func (h *ItemHandler) RenameItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.itemService.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item.Content = nil
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID *string `json:"parent_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.itemService.Move(r.Context(), chi.URLParam(r, "id"), req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item.Content = nil
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem переносит элемент в корзину и возвращает его для отмены.
// Отсутствующий элемент - 204.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.trashService.MoveToTrash(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	item.Content = nil
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.trashService.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withoutContent(items))
}
