package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Handlers - всё, что монтируется в HTTP-роутер.
// Events и Preview необязательны.
type Handlers struct {
	Items   *ItemHandler
	Trash   *TrashHandler
	Shares  *ShareHandler
	Quota   *StorageQuotaHandler
	Events  http.Handler
	Preview http.HandlerFunc
}

func NewRouter(h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestLogger)

	// websocket живет дольше любого таймаута запроса
	if h.Events != nil {
		r.Handle("/v1/events", h.Events)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Minute))

		r.Get("/share/{shareId}", h.Shares.OpenShareLink)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/items", h.Items.ListItems)
			r.Get("/items/recent", h.Items.Recent)
			r.Get("/items/shared", h.Items.Shared)
			r.Post("/items/bulk-delete", h.Items.BulkDelete)
			r.Post("/folders", h.Items.CreateFolder)
			r.Post("/files", h.Items.UploadFiles)

			r.Route("/items/{id}", func(r chi.Router) {
				r.Get("/", h.Items.GetItem)
				r.Get("/content", h.Items.DownloadContent)
				r.Put("/rename", h.Items.RenameItem)
				r.Put("/move", h.Items.MoveItem)
				r.Delete("/", h.Items.DeleteItem)
				r.Post("/share", h.Shares.ShareItem)
				r.Post("/publish", h.Shares.PublishItem)
				r.Post("/send", h.Shares.SendItem)
				if h.Preview != nil {
					r.Get("/preview", h.Preview)
				}
			})

			r.Route("/trash", func(r chi.Router) {
				r.Get("/", h.Trash.GetTrashItems)
				r.Post("/empty", h.Trash.EmptyTrash)
				r.Post("/{id}/restore", h.Trash.RestoreItem)
				r.Post("/{id}/undo", h.Trash.UndoDelete)
				r.Delete("/{id}", h.Trash.DeletePermanently)
			})

			r.Get("/quota", h.Quota.GetQuotaInfo)

			r.Route("/shares", func(r chi.Router) {
				r.Get("/targets", h.Shares.ListTargets)
				r.Get("/{shareId}", h.Shares.GetSharedItem)
			})

			r.Post("/export", h.Shares.Export)
			r.Post("/import", h.Shares.Import)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request handled")
	})
}
