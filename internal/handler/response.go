package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError сопоставляет доменные ошибки со статусами, остальное - 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		http.Error(w, err.Error(), httpErr.StatusCode())
		return
	}

	log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidation("invalid request body: %v", err)
	}
	return nil
}

// optionalID превращает пустую строку в nil (корень)
func optionalID(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// withoutContent убирает содержимое из ответа со списком метаданных
func withoutContent(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	for i, it := range items {
		it.Content = nil
		out[i] = it
	}
	return out
}
