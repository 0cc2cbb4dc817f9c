package handlers

import (
	"context"
	"net/http"

	"github.com/quayside-labs/deskrag/internal/api"
	"github.com/quayside-labs/deskrag/internal/service"
)

type IngestService interface {
	Run(ctx context.Context) (*service.IngestStats, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestResponse struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	BytesRead int64    `json:"bytes_read"`
	Sources   []string `json:"sources"`
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Run(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := stats.Sources
	if sources == nil {
		sources = []string{}
	}

	api.Success(w, http.StatusOK, IngestResponse{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
		BytesRead: stats.BytesRead,
		Sources:   sources,
	})
}
