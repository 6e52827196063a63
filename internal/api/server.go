// Package api provides the HTTP API server and handlers for the LibraryDesk admin backend.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/librarydesk/librarydesk-server/internal/config"
	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/http/response"
	"github.com/librarydesk/librarydesk-server/internal/sse"
	"github.com/librarydesk/librarydesk-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	sseManager *sse.Manager
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger

	corsOrigins     []string
	apiRateLimiter  *RateLimiter
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// sseManager may be nil, in which case the events stream is not mounted.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		store:       st,
		services:    services,
		sseManager:  sseManager,
		router:      chi.NewRouter(),
		logger:      logger,
		corsOrigins: cfg.Server.CORSOrigins,
		// Login attempts: 10 per minute per IP with a burst of 5.
		authRateLimiter: NewRateLimiter(10, time.Minute, 5),
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		s.apiRateLimiter = NewRateLimiter(int(cfg.RateLimit.RequestsPerSecond*60), time.Minute, cfg.RateLimit.Burst)
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("LibraryDesk API", "1.0.0")
	humaConfig.Info.Description = "Admin API for library catalog, members and circulation."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler(logger)

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used to export the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops the background sweepers of the rate limiters.
func (s *Server) Close() {
	if s.apiRateLimiter != nil {
		s.apiRateLimiter.Stop()
	}
	s.authRateLimiter.Stop()
}

// setupMiddleware configures the middleware stack. Chi requires every
// middleware to be registered before the first route.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.StripSlashes)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(s.rateLimit)
	s.router.Use(s.requireAuth)

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, domainerrors.CodeNotFound, "Not found.", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed,
			response.Failure(http.StatusMethodNotAllowed, domainerrors.CodeValidation, "Method not allowed.", nil), s.logger)
	})
}

// setupRoutes registers every operation.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerMemberRoutes()
	s.registerBorrowingRoutes()
	s.registerSearchRoutes()

	if s.sseHandler != nil {
		s.router.Method(http.MethodGet, eventsPath, s.sseHandler)
	}
}
