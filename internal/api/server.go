// Package api provides the HTTP API server for the capacity dashboard.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fabriclabs/dcdash/internal/api/handlers"
	"github.com/fabriclabs/dcdash/internal/api/health"
	"github.com/fabriclabs/dcdash/internal/api/middleware"
	"github.com/fabriclabs/dcdash/internal/auth"
	"github.com/fabriclabs/dcdash/internal/docstore"
	"github.com/fabriclabs/dcdash/internal/refresh"
	"github.com/fabriclabs/dcdash/pkg/config"
)

// Server represents the HTTP API server.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	store        *docstore.Store
	orchestrator *refresh.Orchestrator
	tokens       *auth.TokenValidator
	sessions     *auth.SessionManager
	config       *config.Config
	logger       *slog.Logger
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, store *docstore.Store, orchestrator *refresh.Orchestrator, tokens *auth.TokenValidator, sessions *auth.SessionManager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:        store,
		orchestrator: orchestrator,
		tokens:       tokens,
		sessions:     sessions,
		config:       cfg,
		logger:       logger,
	}

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	authHandler := handlers.NewAuthHandler(s.tokens, s.sessions, s.logger)
	refreshHandler := handlers.NewRefreshHandler(s.orchestrator, s.logger)
	dataHandler := handlers.NewDataHandler(s.store, s.logger)
	gate := middleware.NewSessionGate(s.sessions, s.logger)

	checker := health.NewChecker()
	checker.Register("data_dir", s.checkDataDir)
	checker.Register("admin_token", s.checkAdminToken)
	checker.Register("inventory", s.checkInventory)

	r.Route("/api", func(r chi.Router) {
		// Open endpoints
		r.Get("/health", checker.Handler())
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)
		r.Get("/refresh/status", refreshHandler.Status)

		// Session-gated endpoints
		r.Group(func(r chi.Router) {
			r.Use(gate.Require)
			r.Get("/auth/info", authHandler.Info)
			r.Post("/refresh", refreshHandler.Trigger)
			r.Get("/data/inventory", dataHandler.Inventory)
			r.Get("/data/metrics", dataHandler.Metrics)
			r.Get("/data/capacity", dataHandler.Capacity)
		})
	})

	// Static frontend. The root serves the capacity dashboard; everything
	// else comes straight from the frontend directory.
	frontend := s.config.FrontendDir
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(frontend, "capacity.html"))
	})
	r.Handle("/*", http.FileServer(http.Dir(frontend)))

	s.router = r
}

func (s *Server) checkDataDir() health.ComponentStatus {
	info, err := os.Stat(s.store.Path(""))
	if err != nil || !info.IsDir() {
		return health.ComponentStatus{
			Status:  health.StatusUnhealthy,
			Message: "data directory missing",
		}
	}
	return health.ComponentStatus{Status: health.StatusHealthy}
}

func (s *Server) checkAdminToken() health.ComponentStatus {
	info, err := s.tokens.Info()
	if err != nil {
		return health.ComponentStatus{
			Status:  health.StatusDegraded,
			Message: err.Error(),
		}
	}
	if info.Expired {
		return health.ComponentStatus{
			Status:  health.StatusDegraded,
			Message: "admin token expired",
		}
	}
	return health.ComponentStatus{Status: health.StatusHealthy}
}

func (s *Server) checkInventory() health.ComponentStatus {
	if _, err := s.store.ReadRaw(docstore.InventoryFile); err != nil {
		return health.ComponentStatus{
			Status:  health.StatusDegraded,
			Message: "inventory document not yet produced",
		}
	}
	return health.ComponentStatus{Status: health.StatusHealthy}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
