package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/cache"
	"github.com/ppiankov/truthpost/internal/consensus"
	"github.com/ppiankov/truthpost/internal/factcheck"
	"github.com/ppiankov/truthpost/internal/llm"
	"github.com/ppiankov/truthpost/internal/logging"
	"github.com/ppiankov/truthpost/internal/model"
	"github.com/ppiankov/truthpost/internal/notify"
	"github.com/ppiankov/truthpost/internal/oracle"
	"github.com/ppiankov/truthpost/internal/store"
)

// app is everything a command needs, built from one configuration
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	provider llm.Provider
	store    store.Store
	cache    cache.Cache
	engine   *factcheck.Engine
}

// newApp wires storage, the page cache, the LLM provider, the consensus
// reducer and the notifier into an engine.
func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if provider == nil {
		return nil, errors.New("no LLM provider configured (set llm.provider or --llm-provider)")
	}

	pageCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		closeCache(pageCache)
		return nil, fmt.Errorf("notifier: %w", err)
	}

	s, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		closeCache(pageCache)
		return nil, fmt.Errorf("open store: %w", err)
	}

	adapter := oracle.New(cfg, provider, pageCache, logger.Named("oracle"))
	reducer := consensus.NewStrictEqual(cfg.Consensus.Evaluations, cfg.Consensus.Concurrency, logger.Named("consensus"))
	engine := factcheck.NewEngine(s, adapter, reducer, notifier, logger.Named("engine"))

	logger.Debug("application ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("evaluations", reducer.Evaluations()),
	)

	return &app{cfg: cfg, logger: logger, provider: provider, store: s, cache: pageCache, engine: engine}, nil
}

func (a *app) Close() error {
	closeCache(a.cache)
	_ = a.logger.Sync()
	return a.store.Close()
}

func closeCache(c cache.Cache) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}
