package preview

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
)

// ItemGetter - источник элементов для превью
type ItemGetter interface {
	Get(ctx context.Context, id string) (*domain.Item, error)
}

type Handler struct {
	service *Service
	items   ItemGetter
}

func NewHandler(service *Service, items ItemGetter) *Handler {
	return &Handler{
		service: service,
		items:   items,
	}
}

func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	previewData, err := h.service.GetOrGeneratePreview(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(previewData)
}

func writeError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		http.Error(w, err.Error(), httpErr.StatusCode())
		return
	}

	log.Error().Err(err).Msg("failed to generate preview")
	http.Error(w, "Failed to generate preview", http.StatusInternalServerError)
}
