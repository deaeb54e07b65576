// Package server wires configuration, storage, domain services and the HTTP
// router into a runnable process and manages its lifecycle.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/api"
	domainaudit "github.com/matiasleandrokruk/explorer/internal/domain/audit"
	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/domain/explore"
	"github.com/matiasleandrokruk/explorer/internal/domain/fallback"
	"github.com/matiasleandrokruk/explorer/internal/domain/history"
	"github.com/matiasleandrokruk/explorer/internal/domain/tool"
	"github.com/matiasleandrokruk/explorer/internal/infra/config"
	"github.com/matiasleandrokruk/explorer/internal/infra/eventbus"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	"github.com/matiasleandrokruk/explorer/internal/infra/mcpclient"
	"github.com/matiasleandrokruk/explorer/internal/infra/metrics"
	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
	"github.com/matiasleandrokruk/explorer/internal/version"
	pkgauth "github.com/matiasleandrokruk/explorer/pkg/auth"
)

// ShutdownTimeout bounds how long in-flight requests get to finish.
const ShutdownTimeout = 15 * time.Second

const clientName = "ai-content-explorer"

// Server owns the database, the event bus and the HTTP listener.
type Server struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *sql.DB
	bus      *eventbus.Bus
	explorer *explore.Service
	http     *http.Server

	recorderDone chan struct{}
	closeOnce    sync.Once
	closeErr     error
}

// Option customizes New.
type Option func(*options)

type options struct {
	connector tool.Connector
}

// WithConnector replaces the MCP adapter used in live mode.
func WithConnector(c tool.Connector) Option {
	return func(o *options) { o.connector = c }
}

// New opens the database, applies migrations, seeds the admin account when a
// password is configured and builds the router. The provider mode is decided
// here once for the life of the process.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	logger = logging.OrNop(logger)
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	issuer, err := pkgauth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	db, err := sqlite.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := sqlite.MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	authSvc := domainauth.NewAuthService(db, issuer, logger.Named("auth"))
	if cfg.Auth.AdminPassword != "" {
		created, err := authSvc.EnsureAdmin(ctx, domainauth.AdminSeed{
			Username: cfg.Auth.AdminUsername,
			Email:    cfg.Auth.AdminEmail,
			Password: cfg.Auth.AdminPassword,
			FullName: "System Administrator",
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("server: %w", err)
		}
		if created {
			logger.Info("admin account created", zap.String("username", cfg.Auth.AdminUsername))
		}
	}

	m := metrics.New()
	bus := eventbus.New()
	auditSvc := domainaudit.NewAuditService(db)

	explorer, err := newExplorer(cfg.Providers, o.connector, bus, m, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	router := api.NewRouter(api.Deps{
		DB:             db,
		Issuer:         issuer,
		Auth:           authSvc,
		History:        history.NewService(db),
		Audit:          auditSvc,
		Explorer:       explorer,
		Metrics:        m,
		Logger:         logger,
		Version:        version.Version,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		bus:      bus,
		explorer: explorer,
		http: &http.Server{
			Addr:         net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
		recorderDone: make(chan struct{}),
	}

	recorder := domainaudit.NewRecorder(auditSvc, logger.Named("audit"))
	events := bus.Subscribe(eventbus.TopicToolInvoked)
	go func() {
		defer close(s.recorderDone)
		recorder.Run(context.Background(), events)
	}()

	return s, nil
}

// newExplorer builds the explore service. Without an enabled provider and a
// credential it runs in fallback mode and never opens a session.
func newExplorer(p config.ProvidersConfig, connector tool.Connector, bus eventbus.EventBus, m *metrics.Metrics, logger *zap.Logger) (*explore.Service, error) {
	fb := fallback.New(p.FallbackSearchLatency, p.FallbackImageLatency)
	svcOpts := []explore.Option{explore.WithEventBus(bus), explore.WithMetrics(m), explore.WithLogger(logger)}

	if !p.Live() {
		logger.Info("tool providers disabled, serving fallback results")
		return explore.NewService(explore.Config{Mode: explore.ModeFallback}, nil, fb, svcOpts...), nil
	}

	searchURL, err := mcpclient.Endpoint(p.SearchEndpoint, p.APIKey)
	if err != nil {
		return nil, fmt.Errorf("server: search provider: %w", err)
	}
	imageURL, err := mcpclient.Endpoint(p.ImageEndpoint, p.APIKey)
	if err != nil {
		return nil, fmt.Errorf("server: image provider: %w", err)
	}
	if connector == nil {
		connector = mcpclient.New(clientName, version.Version, logger)
	}

	logger.Info("tool providers enabled",
		zap.String("search_endpoint", mcpclient.Redact(searchURL)),
		zap.String("image_endpoint", mcpclient.Redact(imageURL)),
	)
	return explore.NewService(explore.Config{
		Mode:               explore.ModeLive,
		SearchEndpoint:     searchURL,
		ImageEndpoint:      imageURL,
		SearchProviderName: p.SearchProviderName,
	}, connector, fb, svcOpts...), nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Mode reports the provider mode chosen at startup.
func (s *Server) Mode() explore.Mode { return s.explorer.Mode() }

// Run listens on the configured address until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("server: listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or the listener fails.
// It always releases the database and event bus before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.String("mode", s.explorer.Mode().String()),
		zap.String("version", version.Version),
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.http.Serve(ln) }()

	select {
	case err := <-serveErr:
		_ = s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	<-serveErr
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Close stops the audit recorder and closes the database. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.bus.Close()
		<-s.recorderDone
		if err := s.db.Close(); err != nil {
			s.closeErr = fmt.Errorf("database close error: %w", err)
		}
	})
	return s.closeErr
}
