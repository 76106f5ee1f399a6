// FilePath: api/middleware/api.middleware.auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vermilinks/agrihub/internal/errors"
)

// TokenConfig configures the static bearer token check. Field devices and
// operator dashboards share the hub's token; per-user identity is handled
// upstream by the deployment's reverse proxy.
type TokenConfig struct {
	Token string
}

type TokenMiddleware struct {
	config TokenConfig
}

func NewTokenMiddleware(config TokenConfig) *TokenMiddleware {
	return &TokenMiddleware{config: config}
}

// Authenticate rejects requests without the configured bearer token. An
// empty configured token disables the check for local development.
func (t *TokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.config.Token == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(t.config.Token)) != 1 {
			handleError(w, errors.NewAuthError("invalid token", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func handleError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		http.Error(w, apiErr.Message, apiErr.Code)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
