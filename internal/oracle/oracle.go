// Package oracle gives the resolution engine its two nondeterministic
// primitives: retrieving a source page and asking a language model for a
// judgment. Either may return different output on every call.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/truthpost/internal/cache"
	"github.com/ppiankov/truthpost/internal/llm"
	"github.com/ppiankov/truthpost/internal/model"
	"github.com/ppiankov/truthpost/internal/worker"
)

// ErrNoProvider is returned by Judge when no language model is configured
var ErrNoProvider = errors.New("no LLM provider configured")

// Mode selects how a fetched page is returned
type Mode string

const (
	// ModeText returns the page's readable text
	ModeText Mode = "text"
	// ModeHTML returns the body as served
	ModeHTML Mode = "html"
)

// Adapter implements the page and judgment primitives
type Adapter struct {
	fetcher      *Fetcher
	provider     llm.Provider
	cache        cache.Cache
	cacheTTL     time.Duration
	maxPageChars int
	logger       *zap.Logger
}

// New builds an Adapter from configuration. cache and provider may be nil.
func New(cfg *model.Config, provider llm.Provider, pageCache cache.Cache, logger *zap.Logger) *Adapter {
	fetcher := NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	)
	fetcher.SetLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize))
	if cfg.HTTP.RespectRobots {
		fetcher.SetRobots(NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout))
	}

	return NewWithFetcher(fetcher, provider, pageCache, cfg.Cache.TTL, cfg.HTTP.MaxPageChars, logger)
}

// NewWithFetcher wires an Adapter around an existing fetcher. Pages are
// cached for cacheTTL; zero leaves expiry to the cache.
func NewWithFetcher(fetcher *Fetcher, provider llm.Provider, pageCache cache.Cache, cacheTTL time.Duration, maxPageChars int, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		fetcher:      fetcher,
		provider:     provider,
		cache:        pageCache,
		cacheTTL:     cacheTTL,
		maxPageChars: maxPageChars,
		logger:       logger,
	}
}

// Provider returns the configured judgment provider, or nil
func (a *Adapter) Provider() llm.Provider {
	return a.provider
}

// FetchPage retrieves rawURL in the requested mode. Text mode is truncated
// to the configured page budget so prompts stay bounded.
func (a *Adapter) FetchPage(ctx context.Context, rawURL string, mode Mode) (string, error) {
	if mode == "" {
		mode = ModeText
	}
	if mode != ModeText && mode != ModeHTML {
		return "", fmt.Errorf("unknown fetch mode %q", mode)
	}

	key := cache.PageKey(string(mode), rawURL)
	if a.cache != nil {
		if page, ok := a.cache.Get(ctx, key); ok {
			a.logger.Debug("page cache hit", zap.String("url", rawURL), zap.String("mode", string(mode)))
			return string(page), nil
		}
	}

	start := time.Now()
	result, err := a.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		a.logger.Warn("page fetch failed", zap.String("url", rawURL), zap.Error(err))
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	page := result.HTML
	if mode == ModeText {
		if isHTML(result.ContentType, page) {
			page = RenderText(page)
		} else {
			page = collapseLines(page)
		}
		page = Truncate(page, a.maxPageChars)
	}

	a.logger.Debug("page fetched",
		zap.String("url", rawURL),
		zap.String("final_url", result.FinalURL),
		zap.String("mode", string(mode)),
		zap.Int("chars", len(page)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", time.Since(start)),
	)

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, []byte(page), a.cacheTTL); err != nil {
			a.logger.Warn("page cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return page, nil
}

// Judge asks the language model about prompt. FormatStructured returns the
// reply's JSON object; failures to produce one wrap llm.ErrMalformedOutput.
func (a *Adapter) Judge(ctx context.Context, prompt string, format llm.Format) ([]byte, error) {
	if a.provider == nil {
		return nil, ErrNoProvider
	}

	start := time.Now()
	resp, err := a.provider.Judge(ctx, llm.JudgeRequest{Prompt: prompt, Format: format})
	if err != nil {
		a.logger.Warn("judgment failed", zap.String("provider", a.provider.Name()), zap.Error(err))
		return nil, fmt.Errorf("judge: %w", err)
	}

	a.logger.Debug("judgment received",
		zap.String("provider", a.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("duration", time.Since(start)),
	)

	if format == llm.FormatStructured {
		return resp.Output, nil
	}
	return []byte(resp.Text), nil
}

func isHTML(contentType, body string) bool {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			return mt == "text/html" || mt == "application/xhtml+xml"
		}
	}
	head := strings.ToLower(body[:min(len(body), 512)])
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") || strings.Contains(head, "<body")
}
