package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"localdrive/internal/domain"
	"localdrive/internal/service"
)

type TrashHandler struct {
	trashService *service.TrashService
}

func NewTrashHandler(trashService *service.TrashService) *TrashHandler {
	return &TrashHandler{trashService: trashService}
}

// GetTrashItems обрабатывает запрос на получение содержимого корзины
func (h *TrashHandler) GetTrashItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.trashService.GetTrashItems(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withoutContent(items))
}

// EmptyTrash обрабатывает запрос на очистку корзины
func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.trashService.EmptyTrash(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// RestoreItem восстанавливает элемент из корзины; 204, если в корзине его нет
func (h *TrashHandler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.trashService.RestoreFromTrash(r.Context(), chi.URLParam(r, "id"))
	writeRestored(w, r, item, err)
}

// UndoDelete отменяет последнее перемещение в корзину
func (h *TrashHandler) UndoDelete(w http.ResponseWriter, r *http.Request) {
	item, err := h.trashService.Undo(r.Context(), chi.URLParam(r, "id"))
	writeRestored(w, r, item, err)
}

func writeRestored(w http.ResponseWriter, r *http.Request, item *domain.Item, err error) {
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

// DeletePermanently окончательно удаляет элемент из корзины
func (h *TrashHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.trashService.DeletePermanently(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusOK)
}
