package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskflow/internal/api/ws"
	"github.com/gosuda/taskflow/internal/config"
	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/server/middleware"
	"github.com/gosuda/taskflow/internal/workflow"
)

// Backend is the persistence the server reads directly, outside the engine.
type Backend interface {
	Memberships() domain.MembershipRepository
	Notifications() domain.NotificationRepository
}

// Feed is the live pub/sub backing the WebSocket routes.
type Feed interface {
	ws.Subscriber
	Ping(ctx context.Context) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	backend    Backend
	feed       Feed // nil when Redis is not configured
}

// New creates a Server with all routes wired. ctx bounds the background
// limiter cleanup. feed may be nil, in which case the /ws routes answer 503.
func New(ctx context.Context, cfg *config.Config, engine *workflow.Engine, backend Backend, feed Feed) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router:  router,
		backend: backend,
		feed:    feed,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Every API route needs a token, a workspace and a membership in it.
	// Membership management additionally needs an admin-tier role.
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.RequireWorkspace())
		r.Use(middleware.RequireMember(backend.Memberships()))
		r.Use(middleware.RateLimit(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst))

		r.Group(func(r chi.Router) {
			apiConfig := huma.DefaultConfig("Taskflow API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, engine, backend)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleManager))

			adminConfig := huma.DefaultConfig("Taskflow Admin API", "1.0.0")
			adminConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			// The main API already serves the docs.
			adminConfig.OpenAPIPath = ""
			adminConfig.DocsPath = ""
			adminConfig.SchemasPath = ""
			admin := humachi.New(r, adminConfig)
			registerAdminRoutes(admin, engine)
		})
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.RequireWorkspace())
		r.Use(middleware.RequireMember(backend.Memberships()))
		if feed == nil {
			r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "live updates are not configured", http.StatusServiceUnavailable)
			})
			return
		}
		registerWSRoutes(r, ws.NewHub(feed, cfg.Server.CORSOrigins))
	})

	// Health check (unauthenticated, limited per client IP).
	router.With(middleware.RateLimitByIP(ctx, 5, 10)).Get("/healthz", s.handleHealth)

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var errs []error
	if p, ok := s.backend.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if s.feed != nil {
		if err := s.feed.Ping(r.Context()); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
