package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hark-stt/hark-core/internal/infrastructure/config"
	"github.com/hark-stt/hark-core/internal/infrastructure/logging"
	"github.com/hark-stt/hark-core/internal/supervisor"
	"github.com/hark-stt/hark-core/internal/transcript"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SupervisorInfo is the view of the supervisor the API exposes over HTTP.
// Narrowing to an interface keeps handlers testable without spinning up a
// real engine.
type SupervisorInfo interface {
	State() supervisor.State
	Stats() supervisor.Stats
}

// ComponentCheck probes one infrastructure component for /healthz.
// Required components take the whole service down when they fail; optional
// ones are reported but do not affect the overall status.
type ComponentCheck struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Supervisor  SupervisorInfo
	Pipeline    *transcript.Pipeline
	Store       *transcript.Store
	Components  []ComponentCheck
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
	Commit      string
}

// Server is the HTTP API server for Hark.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	supervisor SupervisorInfo
	pipeline   *transcript.Pipeline
	store      *transcript.Store
	components []ComponentCheck
	version    string
	commit     string
	server     *http.Server
	hub        *Hub
	startedAt  time.Time
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, supervisor, pipeline, store)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Supervisor == nil {
		return nil, fmt.Errorf("supervisor is required")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("transcript pipeline is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("transcript store is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		supervisor: deps.Supervisor,
		pipeline:   deps.Pipeline,
		store:      deps.Store,
		components: deps.Components,
		version:    deps.Version,
		commit:     deps.Commit,
		startedAt:  time.Now(),
	}

	// Use an externally-provided hub if available (needed when the hub is
	// also registered as a pipeline sink before the server exists).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating one from the configured
// settings if none was injected. The hub can be registered as a transcript
// pipeline sink before Start() is called.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, builds the router, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.startedAt = time.Now()

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
