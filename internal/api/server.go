package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ridgelinehome/ridgeline-core/internal/dashboard"
	"github.com/ridgelinehome/ridgeline-core/internal/device"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/config"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/database"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/logging"
	"github.com/ridgelinehome/ridgeline-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Layer     config.LayerConfig
	Logger    *logging.Logger
	Registry  *device.Registry
	Commander *device.Commander // optional: command dispatch reports unavailable without it
	Store     *dashboard.Store
	MQTT      *mqtt.Client // optional: only used for connectivity metrics
	DB        *database.DB // optional: only used for pool metrics
	PanelDir  string       // optional: serve panel assets from disk instead of the embedded build
	Version   string
}

// Server is the HTTP API server for Ridgeline Core.
//
// It manages the HTTP listener, routes, middleware, WebSocket hub, and
// the layer sessions opened over it. The server is created with New()
// and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	layerCfg  config.LayerConfig
	logger    *logging.Logger
	registry  *device.Registry
	commander *device.Commander
	store     *dashboard.Store
	mqtt      *mqtt.Client
	db        *database.DB
	panelDir  string
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, dashboard store)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("dashboard store is required")
	}
	// Commander and MQTT are optional — reads and layer sessions still
	// function, only command dispatch degrades.

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		layerCfg:  deps.Layer,
		logger:    deps.Logger,
		registry:  deps.Registry,
		commander: deps.Commander,
		store:     deps.Store,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		panelDir:  deps.PanelDir,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, launches the
// telemetry relay that forwards registry snapshot pushes to WebSocket
// subscribers, and starts the HTTP listener in a background goroutine.
// The server can be stopped with Close().
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

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Forward registry snapshot pushes to WebSocket subscribers.
	go s.relayTelemetry(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// Cancel background goroutines (hub, telemetry relay)
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
