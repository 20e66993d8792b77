package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/http/middleware"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

type OfferPipeline interface {
	Execute(ctx context.Context, offer entity.Offer) (*usecase.NotifyMatchesOutput, error)
}

// OfferHandler receives published offers. With a publisher the offer goes to
// the queue; without one (or when publishing fails) the pipeline runs inline.
type OfferHandler struct {
	Publisher usecase.OfferPublisher
	Pipeline  OfferPipeline
	Token     string
	Errors    ErrorMapper
	Logger    *zap.SugaredLogger
}

func NewOfferHandler(publisher usecase.OfferPublisher, pipeline OfferPipeline, token string, errs ErrorMapper, logger *zap.SugaredLogger) *OfferHandler {
	return &OfferHandler{
		Publisher: publisher,
		Pipeline:  pipeline,
		Token:     token,
		Errors:    errs,
		Logger:    logger,
	}
}

type OfferResponse struct {
	Success bool                         `json:"success"`
	Queued  bool                         `json:"queued"`
	Result  *usecase.NotifyMatchesOutput `json:"result,omitempty"`
}

func (h *OfferHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook token")
		return
	}

	var offer entity.Offer
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&offer); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	if strings.TrimSpace(offer.ID) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "offer id is required")
		return
	}

	if h.Publisher != nil {
		err := h.Publisher.PublishOffer(r.Context(), offer)
		if err == nil {
			h.Logger.Infow("📤 [OFFERS] oferta enfileirada", "offer_id", offer.ID)
			writeJSON(w, http.StatusAccepted, OfferResponse{Success: true, Queued: true})
			return
		}
		middleware.RecordIntegrationError("rabbitmq")
		h.Logger.Errorw("❌ [OFFERS] falha ao publicar, processando direto", "offer_id", offer.ID, "error", err)
	}

	out, err := h.Pipeline.Execute(r.Context(), offer)
	if err != nil {
		h.Errors.Write(w, "notify_matches", err)
		return
	}
	writeJSON(w, http.StatusOK, OfferResponse{Success: true, Result: out})
}

func (h *OfferHandler) authorized(r *http.Request) bool {
	if h.Token == "" {
		return true
	}
	got := r.Header.Get("X-Webhook-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) == 1
}
