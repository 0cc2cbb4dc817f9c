package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/quayside-labs/deskrag/internal/api"
	"github.com/quayside-labs/deskrag/internal/domain"
	"github.com/quayside-labs/deskrag/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, input service.AnswerInput) (*domain.Answer, error)
}

type AnswerHandler struct {
	svc AnswerService
}

func NewAnswerHandler(svc AnswerService) *AnswerHandler {
	return &AnswerHandler{svc: svc}
}

type AnswerRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type CitationResponse struct {
	Source string `json:"source"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

type AnswerResponse struct {
	Text       string             `json:"text"`
	Citations  []CitationResponse `json:"citations"`
	Sources    []string           `json:"sources"`
	Route      string             `json:"route"`
	UsedTools  []string           `json:"used_tools"`
	RetrievedK int                `json:"retrieved_k"`
	LatencyMS  int64              `json:"latency_ms"`
}

// answerToResponse flattens a domain answer into the wire shape. Slices are
// never null in the JSON so clients can range over them unconditionally.
func answerToResponse(a *domain.Answer) *AnswerResponse {
	citations := make([]CitationResponse, len(a.Citations))
	for i, c := range a.Citations {
		citations[i] = CitationResponse{Source: c.Source, Start: c.Start, End: c.End}
	}

	sources := a.Sources
	if sources == nil {
		sources = []string{}
	}
	usedTools := a.UsedTools
	if usedTools == nil {
		usedTools = []string{}
	}

	return &AnswerResponse{
		Text:       a.Text,
		Citations:  citations,
		Sources:    sources,
		Route:      string(a.Route),
		UsedTools:  usedTools,
		RetrievedK: a.RetrievedK,
		LatencyMS:  a.LatencyMS,
	}
}

func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	input := service.AnswerInput{
		Question: req.Question,
		K:        req.K,
	}

	answer, err := h.svc.Answer(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}
