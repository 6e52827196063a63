package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/config"
)

func (ts *testServer) login(t *testing.T, password string) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"username": "librarian",
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decode[AuthResponse](t, resp.Body.Bytes())
	require.NotEmpty(t, env.Data.AccessToken)
	return env.Data.AccessToken
}

func TestAuth_Disabled(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{"username": "librarian", "password": "x"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[any](t, resp.Body.Bytes()).ErrorCode)
}

func TestAuth_Required(t *testing.T) {
	ts := setupTestServer(t, withAuth("s3cret-pass"))

	resp := ts.api.Get("/api/v1/books")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	env := decode[any](t, resp.Body.Bytes())
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "UNAUTHORIZED", env.ErrorCode)

	resp = ts.api.Get("/api/v1/books", "Authorization: Bearer v4.local.garbage")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	// Health stays open for probes.
	resp = ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAuth_LoginAndAccess(t *testing.T) {
	ts := setupTestServer(t, withAuth("s3cret-pass"))
	token := ts.login(t, "s3cret-pass")

	resp := ts.api.Get("/api/v1/books", "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/books", "Authorization: Bearer "+token, map[string]any{
		"title":  "Dune",
		"author": "Frank Herbert",
		"isbn":   "9780441172719",
	})
	assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func TestAuth_InvalidCredentials(t *testing.T) {
	ts := setupTestServer(t, withAuth("s3cret-pass"))

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"username": "librarian",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode[any](t, resp.Body.Bytes()).ErrorCode)
}

func TestRateLimit_Login(t *testing.T) {
	ts := setupTestServer(t, withAuth("s3cret-pass"))

	var last int
	for range 6 {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"username": "librarian",
			"password": "wrong",
		})
		last = resp.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRateLimit_API(t *testing.T) {
	ts := setupTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, Burst: 2}
	})

	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/books").Code)
	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/books").Code)

	resp := ts.api.Get("/api/v1/books")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode[any](t, resp.Body.Bytes()).ErrorCode)

	// Outside the API prefix nothing is limited.
	assert.Equal(t, http.StatusOK, ts.api.Get("/health").Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bearerToken(tt.header), tt.header)
	}
}

func TestExtractIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", extractIP("203.0.113.7, 10.0.0.1", "10.0.0.2"))
	assert.Equal(t, "10.0.0.2", extractIP("", " 10.0.0.2 "))
	assert.Empty(t, extractIP("", ""))
}
