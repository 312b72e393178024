package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/api/middleware"
	"github.com/ppiankov/truthpost/internal/factcheck"
)

// ClaimHandler serves claim submission, resolution and lookup
type ClaimHandler struct {
	engine         *factcheck.Engine
	resolveTimeout time.Duration
	logger         *zap.Logger
}

// NewClaimHandler creates a handler. resolveTimeout <= 0 leaves the
// request context as the only bound on a resolution.
func NewClaimHandler(engine *factcheck.Engine, resolveTimeout time.Duration, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{engine: engine, resolveTimeout: resolveTimeout, logger: logger}
}

type submitClaimRequest struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
}

// Create submits a new pending claim for the calling identity
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req submitClaimRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, err := factcheck.ValidateSubmission(req.Text, req.SourceURL)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	claim, err := h.engine.SubmitClaim(r.Context(), text, req.SourceURL, middleware.IdentityFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, claim.View())
}

// Resolve fact-checks a pending claim
func (h *ClaimHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.resolveTimeout)
		defer cancel()
	}

	claim, err := h.engine.ResolveClaim(ctx, chi.URLParam(r, "id"), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, claim.View())
}

// GetByID returns one claim
func (h *ClaimHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	claim, err := h.engine.GetClaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claim.View())
}

// List returns every claim keyed by id
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := h.engine.GetClaims(r.Context())
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}
