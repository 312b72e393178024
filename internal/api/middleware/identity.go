package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AccountHeader names the caller when no JWT secret is configured
	AccountHeader = "X-Account"
	identityKey   = contextKey("identity")
)

// IdentityFromContext returns the caller identity, or "" when anonymous
func IdentityFromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

// WithIdentity stores identity in ctx
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Identity resolves who is calling. With a secret, an HS256 bearer token is
// required to carry identity (its "sub" claim, else "addr"); a present but
// invalid token is rejected. Without a secret the X-Account header is
// trusted. Requests with neither continue anonymously.
func Identity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity string

			if len(secret) > 0 {
				bearer := r.Header.Get("Authorization")
				if bearer != "" {
					id, ok := identityFromToken(bearer, secret)
					if !ok {
						writeError(w, http.StatusUnauthorized, "invalid bearer token")
						return
					}
					identity = id
				}
			} else {
				identity = strings.TrimSpace(r.Header.Get(AccountHeader))
			}

			if identity != "" {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects anonymous requests
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "caller identity required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFromToken(bearer string, secret []byte) (string, bool) {
	scheme, tokenStr, ok := strings.Cut(bearer, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token, err := jwt.Parse(strings.TrimSpace(tokenStr), func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, true
	}
	if addr, ok := claims["addr"].(string); ok && addr != "" {
		return addr, true
	}
	return "", false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
