package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hardqode/losb-back/internal/config"

	"github.com/stretchr/testify/assert"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "client-key", Name: "miniapp"},
				{Key: "admin-key", Name: "backoffice", Permissions: []string{"admin"}},
			},
		},
	}
}

func authRequest(t *testing.T, auth *Auth, path, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthValidKey(t *testing.T) {
	auth := NewAuth(authConfig())
	rec := authRequest(t, auth, "/api/v1/user", "client-key")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthMissingKey(t *testing.T) {
	auth := NewAuth(authConfig())
	rec := authRequest(t, auth, "/api/v1/user", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidKey(t *testing.T) {
	auth := NewAuth(authConfig())
	rec := authRequest(t, auth, "/api/v1/user", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthAdminPermission(t *testing.T) {
	auth := NewAuth(authConfig())

	rec := authRequest(t, auth, "/api/v1/admin/users/export", "client-key")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = authRequest(t, auth, "/api/v1/admin/users/export", "admin-key")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthDisabledAllowsAll(t *testing.T) {
	cfg := authConfig()
	cfg.Auth.Enabled = false
	auth := NewAuth(cfg)

	rec := authRequest(t, auth, "/api/v1/user", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 2}}
	auth := NewAuth(cfg)

	assert.Equal(t, http.StatusNoContent, authRequest(t, auth, "/api/v1/user", "k").Code)
	assert.Equal(t, http.StatusNoContent, authRequest(t, auth, "/api/v1/user", "k").Code)
	assert.Equal(t, http.StatusTooManyRequests, authRequest(t, auth, "/api/v1/user", "k").Code)
}
