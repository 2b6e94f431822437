package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"localdrive/internal/service"
)

const maxImportSize = 256 << 20

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

func (h *ShareHandler) ShareItem(w http.ResponseWriter, r *http.Request) {
	link, err := h.shareService.Share(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

func (h *ShareHandler) PublishItem(w http.ResponseWriter, r *http.Request) {
	published, err := h.shareService.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, published)
}

// SendItem отправляет ссылку в выбранный канал; сбой доставки приходит в поле error
func (h *ShareHandler) SendItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	delivery, err := h.shareService.Send(r.Context(), chi.URLParam(r, "id"), req.Target)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, delivery)
}

func (h *ShareHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.shareService.Targets())
}

// GetSharedItem возвращает метаданные элемента по shareId
func (h *ShareHandler) GetSharedItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.shareService.Resolve(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	item.Content = nil
	writeJSON(w, http.StatusOK, item)
}

// OpenShareLink обслуживает ссылки вида /share/{shareId}: файл отдается содержимым, папка - метаданными
func (h *ShareHandler) OpenShareLink(w http.ResponseWriter, r *http.Request) {
	item, err := h.shareService.Resolve(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if item.IsFolder {
		writeJSON(w, http.StatusOK, item)
		return
	}
	serveContent(w, item)
}

func (h *ShareHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	doc, err := h.shareService.Export(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="drive-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *ShareHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	items, err := h.shareService.Import(r.Context(), data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, withoutContent(items))
}
