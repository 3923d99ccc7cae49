package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/scanpoint/scanpoint-core/internal/audit"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/config"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/influxdb"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/logging"
	"github.com/scanpoint/scanpoint-core/internal/infrastructure/mqtt"
	"github.com/scanpoint/scanpoint-core/internal/session"
	"github.com/scanpoint/scanpoint-core/internal/terminal"
	"github.com/scanpoint/scanpoint-core/internal/verify"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Sessions  *session.Manager
	Identity  *verify.Store
	Terminals *terminal.Registry
	Audit     *audit.Recorder
	Roster    *verify.Table

	// MQTT and Influx are optional and only consulted for health/metrics.
	MQTT   *mqtt.Client
	Influx *influxdb.Client

	// ExternalHub lets main share one hub between the API server and the
	// session broadcaster. If nil the server creates its own.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP API server for Scanpoint Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	sessions  *session.Manager
	identity  *verify.Store
	terminals *terminal.Registry
	audit     *audit.Recorder
	roster    *verify.Table
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	version   string

	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	startTime time.Time
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if deps.Terminals == nil {
		return nil, fmt.Errorf("terminal registry is required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	// Roster, MQTT and Influx are optional; the endpoints that report on
	// them degrade to "not configured".

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		sessions:  deps.Sessions,
		identity:  deps.Identity,
		terminals: deps.Terminals,
		audit:     deps.Audit,
		roster:    deps.Roster,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
		tickets:   newTicketStore(),
		startTime: time.Now(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub (unless one was injected
// externally), and launches the HTTP listener in a background goroutine.
// The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Expired WebSocket tickets are swept periodically.
	go s.cleanTicketsLoop(srvCtx)

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
			s.logger.Info("API server starting", "address", s.server.Addr)
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
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Stop background goroutines (hub, ticket sweeper).
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
