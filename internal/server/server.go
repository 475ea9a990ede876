package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/latticedocs/lattice/internal/api"
	"github.com/latticedocs/lattice/internal/config"
	"github.com/latticedocs/lattice/internal/home"
	"github.com/latticedocs/lattice/internal/jobs"
	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/prompts"
	"github.com/latticedocs/lattice/internal/prompts/conceptmap"
	"github.com/latticedocs/lattice/internal/prompts/narrative"
	"github.com/latticedocs/lattice/internal/server/endpoints"
	"github.com/latticedocs/lattice/internal/store"
	"github.com/latticedocs/lattice/internal/svcctx"
)

// Server is the main Lattice HTTP server. It owns the document store,
// producer registry, prompt resolver, and job manager lifecycles.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	jobManager *jobs.Manager
	registry   *producer.Registry
	resolver   *prompts.Resolver
	configMgr  *config.Manager
	home       *home.Dir
	storePath  string
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8585)
	Port string
	// StorePath overrides the SQLite database location
	StorePath string
	// Home is the lattice home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8585"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		h, err := home.New("")
		if err != nil {
			return nil, err
		}
		cfg.Home = h
	}

	// Create producer registry
	registry := producer.NewRegistry()
	registry.SetLogger(cfg.Logger)

	// If config manager provided, set up producers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProducerSpecs())

		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProducerSpecs())
			cfg.Logger.Info("producer registry reloaded from config")
		})
	}

	// Embedded prompts plus file overrides from the home directory
	resolver := prompts.NewResolver(cfg.Logger)
	conceptmap.RegisterPrompts(resolver)
	narrative.RegisterPrompts(resolver)

	s := &Server{
		registry:  registry,
		resolver:  resolver,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		storePath: cfg.StorePath,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server. It blocks until the context is cancelled
// or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to prepare home directory: %w", err)
	}

	// Prompt overrides live in ~/.lattice/prompts
	if err := s.resolver.LoadOverrides(s.home.PromptsDir()); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to load prompt overrides: %w", err)
	}

	// Open the document store
	storePath := s.storePath
	if storePath == "" {
		storePath = s.home.StorePath()
	}
	st, err := store.Open(storePath)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st
	s.logger.Info("store ready", "path", storePath)

	// Create job manager
	workers := 4
	if s.configMgr != nil {
		if w := s.configMgr.Get().Defaults.MaxWorkers; w > 0 {
			workers = w
		}
	}
	s.jobManager = jobs.NewManager(workers, s.logger)

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:      s.store,
		JobManager: s.jobManager,
		Producers:  s.registry,
		Prompts:    s.resolver,
		Cache:      &pipeline.Cache{},
		ConfigMgr:  s.configMgr,
		Home:       s.home,
		Logger:     s.logger,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server, job
// manager, and store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.jobManager != nil {
		s.jobManager.Shutdown()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the document store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() *store.Store {
	return s.store
}

// JobManager returns the job manager.
// Returns nil if the server hasn't started yet.
func (s *Server) JobManager() *jobs.Manager {
	return s.jobManager
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the producer registry.
func (s *Server) Registry() *producer.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or job manager aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.jobManager == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
