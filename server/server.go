// Package server provides the HTTP server for the rollcall web interface.
//
// The server owns one roster page. It renders the page for browsers,
// turns form posts into controller actions, and exposes the page's state as
// JSON for scripts and monitoring.
//
// # Endpoints
//
//   - GET / - The roster page
//   - POST /signup - Submits the signup form
//   - POST /roster/click - Activates a control inside the roster
//   - POST /refresh - Re-fetches the roster
//   - GET /api/roster - Last fetched roster and sync state
//   - GET /api/notification - Visible notification, if any
//   - GET /api/diagnostics - Captured warnings and errors, refresh schedule
//   - GET /api/server - Build and instance properties
//   - GET /config - Effective configuration as YAML
//   - GET /health - Simple health check, returns "ok"
//   - GET /metrics - Prometheus metrics
//
// Form posts redirect back to / with 303 See Other.
//
// # Example
//
//	srv, err := server.New(cfg, server.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nomis52/rollcall/buildinfo"
	"github.com/nomis52/rollcall/config"
	"github.com/nomis52/rollcall/controller"
	"github.com/nomis52/rollcall/logging"
	"github.com/nomis52/rollcall/metrics"
	"github.com/nomis52/rollcall/notify"
	"github.com/nomis52/rollcall/rosterclient"
	"github.com/nomis52/rollcall/server/cron"
	"github.com/nomis52/rollcall/server/handlers"
	"github.com/nomis52/rollcall/server/types"
	"github.com/nomis52/rollcall/view"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultDiagnosticsSize = 200
)

// Server is the HTTP server for the rollcall web interface.
type Server struct {
	cfg       config.Config
	logger    *slog.Logger
	clock     clockwork.Clock
	transport controller.Transport
	cronSpec  string
	startedAt time.Time

	collector   *logging.LogCollector
	page        *view.Page
	channel     *notify.Channel
	ctrl        *controller.Controller
	registry    *metrics.ScrapeRegistry
	cronTrigger *cron.CronTrigger
	httpServer  *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithCron configures the server to refresh the roster on a cron schedule,
// overriding the configured refresh schedule.
func WithCron(spec string) Option {
	return func(s *Server) error {
		if _, err := cron.ParseSchedule(spec); err != nil {
			return fmt.Errorf("creating cron trigger: %w", err)
		}
		s.cronSpec = spec
		return nil
	}
}

// WithListenAddr configures the address the server listens on.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.cfg.Server.ListenAddr = addr
		return nil
	}
}

// WithClock sets the clock used for notification and refresh timers.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) error {
		s.clock = clock
		return nil
	}
}

// WithTransport replaces the HTTP client for the activities service.
func WithTransport(t controller.Transport) Option {
	return func(s *Server) error {
		s.transport = t
		return nil
	}
}

// New creates a new Server from cfg. cfg is expected to have been through
// config.LoadConfig or SetDefaults.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
		cronSpec: cfg.Refresh.Schedule,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.startedAt = s.clock.Now()
	s.collector = logging.NewLogCollector(defaultDiagnosticsSize)

	if s.transport == nil {
		s.transport = rosterclient.New(cfg.Service.URL,
			rosterclient.WithTimeout(cfg.Service.Timeout),
			rosterclient.WithLogger(logging.Capture(s.logger, s.collector, "rosterclient")),
		)
	}

	registry, err := metrics.NewScrapeRegistry(cfg.Monitoring.MetricsPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	s.registry = registry

	s.page = view.NewPage(cfg.Server.Title)
	s.channel = notify.New(s.page,
		notify.WithClock(s.clock),
		notify.WithDuration(cfg.Notifications.Duration),
		notify.WithLogger(s.logger),
	)

	s.ctrl, err = controller.New(s.transport, s.page, s.channel,
		controller.WithLogger(logging.Capture(s.logger, s.collector, "controller")),
		controller.WithMetrics(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("creating controller: %w", err)
	}

	if s.cronSpec != "" {
		s.cronTrigger, err = cron.NewCronTrigger(s.cronSpec, s.ctrl.Refresh,
			logging.Capture(s.logger, s.collector, "cron"),
			cron.WithClock(s.clock),
		)
		if err != nil {
			return nil, fmt.Errorf("creating cron trigger: %w", err)
		}
	}

	return s, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Config returns the configuration the server was built from.
func (s *Server) Config() *config.Config {
	return &s.cfg
}

// Controller returns the controller driving the page.
func (s *Server) Controller() *controller.Controller {
	return s.ctrl
}

// Page returns the roster page.
func (s *Server) Page() *view.Page {
	return s.page
}

// Notifications returns the page's notification channel.
func (s *Server) Notifications() *notify.Channel {
	return s.channel
}

// RefreshStatus returns the periodic refresh status, or nil if no
// schedule is configured.
func (s *Server) RefreshStatus() *cron.Status {
	if s.cronTrigger == nil {
		return nil
	}
	status := s.cronTrigger.Status()
	return &status
}

// Properties returns metadata about this server instance.
func (s *Server) Properties() types.ServerProperties {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return types.ServerProperties{
		Build:      buildinfo.Get(),
		StartedAt:  s.startedAt,
		Hostname:   hostname,
		ServiceURL: s.cfg.Service.URL,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run loads the roster, starts the HTTP server, and blocks until the
// context is cancelled. It performs a graceful shutdown when the context is
// done. If a cron trigger is configured, it will be started automatically.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.ListenAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener. The cron trigger and any visible
// notification end with Serve, whichever way it returns.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.channel.Hide()

	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: defaultReadTimeout,
		// Handlers wait on the activities service.
		WriteTimeout: 2*s.cfg.Service.Timeout + defaultReadTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	if err := s.ctrl.Refresh(ctx); err != nil {
		s.logger.Warn("initial roster load failed", "error", err)
	}

	if s.cronTrigger != nil {
		s.logger.Info("starting cron trigger",
			"schedule", s.cronSpec,
			"next_run", s.cronTrigger.NextRun(),
		)
		s.cronTrigger.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", listener.Addr().String(),
			"service_url", s.cfg.Service.URL,
		)
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, stop := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer stop()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	clickLogger := logging.Capture(s.logger, s.collector, "server")

	mux.Handle("GET /{$}", handlers.NewPageHandler(s.logger, s.page))
	mux.Handle("POST "+view.SignupAction, handlers.NewSignupHandler(s.ctrl))
	mux.Handle("POST "+view.ClickAction, handlers.NewRosterClickHandler(clickLogger, s.ctrl))
	mux.Handle("POST /refresh", handlers.NewRefreshHandler(s.logger, s.ctrl))

	mux.Handle("GET /api/roster", handlers.NewRosterHandler(s.ctrl))
	mux.Handle("GET /api/notification", handlers.NewNotificationHandler(s.channel))
	mux.Handle("GET /api/diagnostics", handlers.NewDiagnosticsHandler(s.collector, s))
	mux.Handle("GET /api/server", handlers.NewServerHandler(s.Properties()))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /metrics", s.registry.Handler())
}
