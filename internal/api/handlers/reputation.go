package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/factcheck"
)

// ReputationHandler serves the reputation ledger
type ReputationHandler struct {
	engine *factcheck.Engine
	logger *zap.Logger
}

// NewReputationHandler creates a new reputation handler
func NewReputationHandler(engine *factcheck.Engine, logger *zap.Logger) *ReputationHandler {
	return &ReputationHandler{engine: engine, logger: logger}
}

type userReputationResponse struct {
	Identity   string `json:"identity"`
	Reputation int64  `json:"reputation"`
}

// List returns the whole reputation ledger
func (h *ReputationHandler) List(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.GetReputation(r.Context())
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Get returns one identity's score; unknown identities score 0
func (h *ReputationHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	score, err := h.engine.GetUserReputation(r.Context(), identity)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userReputationResponse{Identity: identity, Reputation: score})
}
