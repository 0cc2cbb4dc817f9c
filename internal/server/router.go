package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quayside-labs/deskrag/internal/api"
	"github.com/quayside-labs/deskrag/internal/api/handlers"
	"github.com/quayside-labs/deskrag/internal/api/middleware"
)

type RouterConfig struct {
	AnswerHandler *handlers.AnswerHandler
	IngestHandler *handlers.IngestHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ingest", cfg.IngestHandler.Ingest)
	r.Post("/answer", cfg.AnswerHandler.Answer)

	return r
}
