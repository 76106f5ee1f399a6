// FilePath: api/middleware/api.middleware.auth_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authRequest(t *testing.T, token string, header string) *httptest.ResponseRecorder {
	t.Helper()
	mw := NewTokenMiddleware(TokenConfig{Token: token})
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	rec := authRequest(t, "hub-secret", "Bearer hub-secret")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	rec := authRequest(t, "hub-secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsWrongToken(t *testing.T) {
	rec := authRequest(t, "hub-secret", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	rec := authRequest(t, "hub-secret", "hub-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateBearerIsCaseInsensitive(t *testing.T) {
	rec := authRequest(t, "hub-secret", "bearer hub-secret")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEmptyConfiguredTokenDisablesCheck(t *testing.T) {
	rec := authRequest(t, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
