package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk-server/internal/auth"
	"github.com/librarydesk/librarydesk-server/internal/config"
	"github.com/librarydesk/librarydesk-server/internal/search"
	"github.com/librarydesk/librarydesk-server/internal/service"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store/sqlite"
	"github.com/librarydesk/librarydesk-server/internal/validation"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// testEnvelope is the decoded form of every JSON response.
type testEnvelope[T any] struct {
	Status    string              `json:"status"`
	Code      int                 `json:"code"`
	ErrorCode string              `json:"error_code"`
	Message   string              `json:"message"`
	Data      T                   `json:"data"`
	Errors    map[string][]string `json:"errors"`
}

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer builds a server against SQLite and a search index in a
// temporary directory. Options adjust the configuration before wiring.
func setupTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AdminUsername:       "librarian",
			AccessTokenDuration: 15 * time.Minute,
		},
		Circulation: config.CirculationConfig{LoanPeriod: 14 * 24 * time.Hour},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokens, err := auth.NewTokenService(testKeyHex, cfg.Auth.AccessTokenDuration)
	require.NoError(t, err)

	v := validation.New()
	sseManager := sse.NewManager(logger)
	searchService := service.NewSearchService(index, st, logger)

	authService, err := service.NewAuthService(cfg.Auth, tokens, v, logger)
	require.NoError(t, err)

	services := &Services{
		Catalog:     service.NewCatalogService(st, searchService, sseManager, v, logger),
		Members:     service.NewMemberService(st, searchService, sseManager, v, logger),
		Circulation: service.NewCirculationService(st, searchService, sseManager, v, cfg.Circulation.LoanPeriod, logger),
		Search:      searchService,
		Auth:        authService,
	}

	s := NewServer(st, services, sseManager, cfg, logger)
	t.Cleanup(s.Close)

	return &testServer{Server: s, api: humatest.Wrap(t, s.API())}
}

func withAuth(password string) func(*config.Config) {
	return func(cfg *config.Config) {
		cfg.Auth.AdminPassword = password
	}
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return env
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "OK", env.Message)
	assert.Equal(t, healthHealthy, env.Data.Status)
	assert.Equal(t, healthHealthy, env.Data.Components["database"].Status)
	assert.Equal(t, healthHealthy, env.Data.Components["search"].Status)
	assert.Equal(t, healthHealthy, env.Data.Components["events"].Status)
}

func TestHealthCheck_SearchDisabled(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Search = nil

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, healthHealthy, env.Data.Status)
	assert.Equal(t, "search disabled", env.Data.Components["search"].Message)
}

func TestNotFoundEnvelope(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/nowhere")
	require.Equal(t, http.StatusNotFound, resp.Code)

	env := decode[any](t, resp.Body.Bytes())
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, http.StatusNotFound, env.Code)
	assert.Equal(t, "NOT_FOUND", env.ErrorCode)
}

func TestTrailingSlash(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[ListResponse[BookResponse]](t, resp.Body.Bytes())
	assert.Equal(t, "success", env.Status)
	assert.Empty(t, env.Data.Items)
}

func TestOpenAPIDocument(t *testing.T) {
	ts := setupTestServer(t)

	oapi := ts.API().OpenAPI()
	for _, path := range []string{
		"/api/v1/books",
		"/api/v1/books/{id}",
		"/api/v1/members",
		"/api/v1/borrowings",
		"/api/v1/borrowings/{id}/return",
		"/api/v1/borrowings/{id}/return_book",
		"/api/v1/search",
	} {
		assert.Contains(t, oapi.Paths, path)
	}
}
