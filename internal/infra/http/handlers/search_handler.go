package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/normalize"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

type Searcher interface {
	SearchAndRank(ctx context.Context, req entity.Requirement) []entity.SearchResult
}

type SearchHandler struct {
	Fanout      Searcher
	Errors      ErrorMapper
	Logger      *zap.SugaredLogger
	rateLimiter *RateLimiter
}

func NewSearchHandler(fanout Searcher, errs ErrorMapper, logger *zap.SugaredLogger) *SearchHandler {
	return &SearchHandler{
		Fanout:      fanout,
		Errors:      errs,
		Logger:      logger,
		rateLimiter: NewRateLimiter(10, time.Minute), // 10 req/min por IP
	}
}

type SearchRequest struct {
	entity.Requirement
	Limit int `json:"limit"`
}

type SearchResponse struct {
	Success bool                  `json:"success"`
	Total   int                   `json:"total"`
	Results []entity.SearchResult `json:"results"`
}

func (h *SearchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	if req.PropertyType == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "property_type is required")
		return
	}
	if req.Purpose == "" {
		req.Purpose = normalize.Purpose(req.PropertyType)
	}
	if err := usecase.JoinValidation(usecase.ValidateRequirement(req.Requirement)); err != nil {
		h.Errors.Write(w, "search", err)
		return
	}

	results := h.Fanout.SearchAndRank(r.Context(), req.Requirement)
	total := len(results)
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	if results == nil {
		results = []entity.SearchResult{}
	}

	h.Logger.Infow("🔎 [SEARCH] busca concluída", "property_type", req.PropertyType, "total", total)
	writeJSON(w, http.StatusOK, SearchResponse{Success: true, Total: total, Results: results})
}
