package middleware

import (
	"net"
	"net/http"

	"github.com/ppiankov/truthpost/internal/worker"
)

// RateLimit limits requests per client IP. rps <= 0 disables the limit.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := worker.NewLimiter(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.AllowKey(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Real-IP (set by chi's RealIP) over RemoteAddr
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
