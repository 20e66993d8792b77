package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

// ClientHandler exposes the client operations used by the bot and by
// operators: requirements upsert, activation toggles, interactions.
type ClientHandler struct {
	Clients usecase.ClientRepository
	Engine  *usecase.MatchingEngine
	Submit  *usecase.SubmitRequirementsUseCase
	Errors  ErrorMapper
	Logger  *zap.SugaredLogger
}

func NewClientHandler(
	clients usecase.ClientRepository,
	engine *usecase.MatchingEngine,
	submit *usecase.SubmitRequirementsUseCase,
	errs ErrorMapper,
	logger *zap.SugaredLogger,
) *ClientHandler {
	return &ClientHandler{
		Clients: clients,
		Engine:  engine,
		Submit:  submit,
		Errors:  errs,
		Logger:  logger,
	}
}

type ClientSummary struct {
	Phone          string                   `json:"phone"`
	Name           string                   `json:"name"`
	Role           entity.Role              `json:"role"`
	State          entity.ConversationState `json:"state"`
	RequestStatus  entity.RequestStatus     `json:"request_status"`
	ActiveRequests int                      `json:"active_requests"`
	Matches        int                      `json:"matches"`
	LastMessageAt  *time.Time               `json:"last_message_at,omitempty"`
}

type DeactivateRequest struct {
	Reason string `json:"reason"`
}

type InteractionRequest struct {
	OfferID string                 `json:"offer_id"`
	Type    entity.InteractionType `json:"type"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.Clients.ListAll(r.Context())
	if err != nil {
		h.Errors.Write(w, "list_clients", err)
		return
	}

	out := make([]ClientSummary, 0, len(all))
	for _, c := range all {
		s := ClientSummary{
			Phone:         c.Phone,
			Name:          c.Name,
			Role:          c.Role,
			State:         c.State,
			RequestStatus: c.RequestStatus,
			Matches:       len(c.MatchHistory),
			LastMessageAt: c.LastMessageAt,
		}
		for _, req := range c.Requests {
			if req.IsActive() {
				s.ActiveRequests++
			}
		}
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Clients.Get(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.Errors.Write(w, "get_client", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	ok, err := h.Clients.Delete(r.Context(), phone)
	if err != nil {
		h.Errors.Write(w, "delete_client", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
		return
	}
	h.Logger.Infow("🗑️ cliente removido", "phone", phone)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// PutRequest handles PUT /clients/{phone}/requests.
func (h *ClientHandler) PutRequest(w http.ResponseWriter, r *http.Request) {
	var input usecase.SubmitRequirementsInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	input.Phone = chi.URLParam(r, "phone")

	out, err := h.Submit.Execute(r.Context(), input)
	if err != nil {
		h.Errors.Write(w, "submit_requirements", err)
		return
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var body DeactivateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
			return
		}
	}

	if err := h.Engine.MarkInactive(r.Context(), chi.URLParam(r, "phone"), body.Reason); err != nil {
		h.Errors.Write(w, "mark_inactive", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *ClientHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Reactivate(r.Context(), chi.URLParam(r, "phone")); err != nil {
		h.Errors.Write(w, "reactivate", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *ClientHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var body InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	if body.OfferID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "offer_id is required")
		return
	}

	if err := h.Engine.RecordInteraction(r.Context(), chi.URLParam(r, "phone"), body.OfferID, body.Type); err != nil {
		h.Errors.Write(w, "record_interaction", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *ClientHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Engine.GetInteractionStats(r.Context())
	if err != nil {
		h.Errors.Write(w, "interaction_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Routes mounts the client API on r.
func (h *ClientHandler) Routes(r chi.Router) {
	r.Get("/clients", h.List)
	r.Route("/clients/{phone}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Put("/requests", h.PutRequest)
		r.Post("/deactivate", h.Deactivate)
		r.Post("/reactivate", h.Reactivate)
		r.Post("/interactions", h.RecordInteraction)
	})
	r.Get("/stats/interactions", h.Stats)
}
