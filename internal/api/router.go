// Package api exposes the fact-check engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/api/handlers"
	mw "github.com/ppiankov/truthpost/internal/api/middleware"
	"github.com/ppiankov/truthpost/internal/factcheck"
	"github.com/ppiankov/truthpost/internal/model"
)

// NewRouter builds the HTTP handler for engine
func NewRouter(engine *factcheck.Engine, cfg model.ServerConfig, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}

	claimHandler := handlers.NewClaimHandler(engine, cfg.ResolveTimeout, logger)
	reputationHandler := handlers.NewReputationHandler(engine, logger)

	r := chi.NewRouter()

	// Order matters: request id first so every later log line carries it
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Identity([]byte(cfg.JWTSecret)))
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	started := time.Now()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/claims", func(r chi.Router) {
			r.Get("/", claimHandler.List)
			r.With(mw.RequireIdentity).Post("/", claimHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", claimHandler.GetByID)
				r.With(mw.RequireIdentity).Post("/resolve", claimHandler.Resolve)
			})
		})

		r.Route("/reputation", func(r chi.Router) {
			r.Get("/", reputationHandler.List)
			r.Get("/{identity}", reputationHandler.Get)
		})
	})

	return r
}
