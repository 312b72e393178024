package oracle

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/truthpost/internal/util"
	"github.com/ppiankov/truthpost/internal/worker"
)

// ErrBlockedByRobots is returned when robots.txt disallows the source URL
var ErrBlockedByRobots = errors.New("blocked by robots.txt")

const maxFetchAttempts = 3

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = time.Sleep

// StatusError reports a non-2xx response from the source site
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher retrieves source pages over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *RobotsChecker
	delayed    sync.Map // domains already slowed to their crawl delay
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed test sites
	}

	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// SetLimiter enables per-domain rate limiting
func (f *Fetcher) SetLimiter(l *worker.Limiter) {
	f.limiter = l
}

// SetRobots enables robots.txt checks
func (f *Fetcher) SetRobots(r *RobotsChecker) {
	f.robots = r
}

// FetchResult contains the fetched body and response metadata
type FetchResult struct {
	HTML        string
	StatusCode  int
	ContentType string
	FinalURL    string
	Truncated   bool
}

// Fetch retrieves rawURL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	// Read one byte past the cap to detect truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	truncated := int64(len(body)) > f.maxBytes
	if truncated {
		body = body[:f.maxBytes]
	}

	return &FetchResult{
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		Truncated:   truncated,
	}, nil
}

// FetchWithRetry checks robots.txt, waits for the domain's rate limit and
// fetches rawURL, retrying 429, 5xx and transport errors with backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrBlockedByRobots, rawURL)
		}
		if crawlDelay > 0 && f.limiter != nil {
			if domain, err := hostOf(rawURL); err == nil {
				if _, seen := f.delayed.LoadOrStore(domain, true); !seen {
					f.limiter.SetDomainRate(domain, 1/crawlDelay.Seconds(), 1)
				}
			}
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}

	return nil, lastErr
}

// isRetryableFetchError reports whether another attempt may succeed
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	// Transport failures (refused, reset, timeouts) are wrapped as "fetch:"
	return strings.HasPrefix(err.Error(), "fetch:")
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Host), nil
}
