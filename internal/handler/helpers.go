package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes a request body. Unknown fields are ignored.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// rejectedStatus maps the store's status to ours: not-found and conflict
// pass through, anything else becomes 422.
func rejectedStatus(storeStatus int) int {
	switch storeStatus {
	case http.StatusNotFound:
		return http.StatusNotFound
	case http.StatusConflict:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var rejected *domain.ErrStoreRejected
	var unavailable *domain.ErrStoreUnavailable

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCheckoutInProgress):
		logger.Debug("checkout in progress")
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &rejected):
		logger.Warn("store rejected request",
			zap.String("op", rejected.Op),
			zap.Int("store_status", rejected.Status),
			zap.String("message", rejected.Message),
		)
		writeError(w, rejectedStatus(rejected.Status), rejected.Message)
	case errors.As(err, &unavailable):
		logger.Error("store unavailable", zap.String("op", unavailable.Op), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
