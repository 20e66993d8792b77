package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/database"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Code: code, Message: msg})
}

// ErrorMapper turns use case errors into HTTP responses and raises the
// operator alert when the store failed its post-write verification.
type ErrorMapper struct {
	Alerts usecase.AlertSender
	Logger *zap.SugaredLogger
}

func (m ErrorMapper) Write(w http.ResponseWriter, op string, err error) {
	var domainErr *usecase.DomainError
	switch {
	case errors.As(err, &domainErr):
		writeError(w, http.StatusBadRequest, domainErr.Code, domainErr.Message)
	case errors.Is(err, entity.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "INVALID_PHONE", err.Error())
	case errors.Is(err, entity.ErrClientNotFound), errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "CLIENT_NOT_FOUND", "client not found")
	case errors.Is(err, entity.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, database.ErrMalformedRecord):
		m.Logger.Errorw("❌ registro inválido no store", "op", op, "error", err)
		writeError(w, http.StatusConflict, "MALFORMED_RECORD", "stored client record is malformed")
	default:
		if errors.Is(err, database.ErrVerifyMismatch) {
			m.alert(op, err)
		}
		m.Logger.Errorw("❌ erro interno", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func (m ErrorMapper) alert(op string, err error) {
	if m.Alerts == nil {
		return
	}
	subject := "[aqar-matcher] falha de verificação do armazenamento"
	body := fmt.Sprintf("Operação: %s\nErro: %v", op, err)
	if aerr := m.Alerts.SendAlert(subject, body); aerr != nil {
		m.Logger.Warnw("⚠️ alerta por e-mail não enviado", "error", aerr)
	}
}
