package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/truthpost/internal/worker"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func newTestFetcher() *Fetcher {
	return NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.HTML != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if result.ContentType != "text/html" {
		t.Errorf("Unexpected content type: %s", result.ContentType)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	result, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	_, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	_, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 StatusError, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	if _, err := newTestFetcher().FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 10, false, "", "", "")
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(result.HTML) != 10 || !result.Truncated {
		t.Errorf("Expected 10 truncated bytes, got %d (truncated=%v)", len(result.HTML), result.Truncated)
	}
}

func TestFetch_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL+"/")
	if err == nil || !strings.Contains(err.Error(), "stopped after 3 redirects") {
		t.Fatalf("Expected redirect limit error, got %v", err)
	}
}

func TestFetchWithRetry_Robots(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "<p>page</p>")
	}))
	defer server.Close()

	f := newTestFetcher()
	f.SetRobots(NewRobotsChecker("test-agent", time.Second))

	if _, err := f.FetchWithRetry(context.Background(), server.URL+"/private/doc"); !errors.Is(err, ErrBlockedByRobots) {
		t.Fatalf("Expected ErrBlockedByRobots, got %v", err)
	}
	if pageHits.Load() != 0 {
		t.Error("Disallowed page must not be requested")
	}
	if _, err := f.FetchWithRetry(context.Background(), server.URL+"/public"); err != nil {
		t.Fatalf("Allowed page failed: %v", err)
	}
}

func TestFetchWithRetry_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	f := newTestFetcher()
	f.SetLimiter(worker.NewLimiter(0.001, 1))

	if _, err := f.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("First fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.FetchWithRetry(ctx, server.URL)
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"502 wrapped", fmt.Errorf("fetch page: %w", &StatusError{Code: 502}), true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"401", &StatusError{Code: 401}, false},
		{"refused", errors.New("fetch: connection refused"), true},
		{"reset", errors.New("fetch: connection reset by peer"), true},
		{"bad request", errors.New("create request: invalid URL"), false},
		{"short body", errors.New("read body: unexpected EOF"), false},
		{"cancelled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
