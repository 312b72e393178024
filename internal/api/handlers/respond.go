package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/consensus"
	"github.com/ppiankov/truthpost/internal/factcheck"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an engine failure onto a status code. Agreement
// failures are retryable and say so with Retry-After.
func writeEngineError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, factcheck.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, factcheck.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, factcheck.ErrInvalidVerdict):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, factcheck.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, consensus.ErrAgreementFailure):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
