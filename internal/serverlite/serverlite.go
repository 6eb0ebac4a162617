// Package serverlite runs the complete HTTP stack in-process with the memory
// credential store, for end-to-end tests and local demos.
package serverlite

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	appservice "github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/internal/bootstrap"
	"github.com/omega-networks/mapkit-auth/internal/config"
	domainservice "github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/monitoring"
	httpapi "github.com/omega-networks/mapkit-auth/internal/interfaces/http"
	"github.com/omega-networks/mapkit-auth/internal/interfaces/http/handlers"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// Options configures a lite server. Zero values fall back to test-friendly defaults.
type Options struct {
	// Addr is the listen address; "127.0.0.1:0" picks a free port.
	Addr            string
	SiteURL         string
	Environment     string
	AdminKey        string
	IntegritySecret string
	// RenderRPM enables rate limiting of the token endpoint when positive.
	RenderRPM int
	Clock     domainservice.Clock
	Logger    logger.Logger
}

// Server is a lightweight, in-memory MapKit token server.
type Server struct {
	HttpServer *http.Server
	App        appservice.MapKitAppService

	listener   net.Listener
	components *bootstrap.Components
}

// NewServer wires the same router, handlers and application service as the
// real server on top of in-memory infrastructure.
func NewServer(opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	if opts.Environment == "" {
		opts.Environment = "production"
	}
	if opts.IntegritySecret == "" {
		opts.IntegritySecret = "serverlite"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}

	cfg := &config.Config{
		Site:        config.SiteConfig{URL: opts.SiteURL, Environment: opts.Environment},
		Credentials: config.CredentialsConfig{Store: "memory"},
		Audit:       config.AuditConfig{Sink: "log"},
		RateLimit: config.RateLimitConfig{
			Enabled:   opts.RenderRPM > 0,
			Backend:   "memory",
			RenderRPM: opts.RenderRPM,
			TestRPM:   opts.RenderRPM,
			Burst:     opts.RenderRPM,
		},
		Integrity: config.IntegrityConfig{Secret: opts.IntegritySecret},
	}
	if opts.AdminKey != "" {
		cfg.Admin.APIKeys = []string{opts.AdminKey}
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)
	domainMetrics := monitoring.NewMetricsAdapter(metrics)

	components, err := bootstrap.Build(context.Background(), cfg, domainMetrics, opts.Logger)
	if err != nil {
		return nil, err
	}

	issuer := domainservice.NewTokenIssuer(
		domainservice.OriginPolicy{SiteURL: cfg.Site.URL, Local: cfg.Site.IsLocal()},
		opts.Clock,
		opts.Logger,
	)
	integrity := domainservice.NewIntegrityService(cfg.Integrity.Secret, 0, opts.Clock)
	app := appservice.NewMapKitAppService(issuer, components.Store, integrity, components.Audit, domainMetrics, opts.Logger)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.RouterDependencies{
		Config:        cfg,
		Logger:        opts.Logger,
		Metrics:       metrics,
		Gatherer:      registry,
		RateLimiter:   components.RateLimiter,
		MapKitHandler: handlers.NewMapKitHandler(app, opts.Logger),
		AdminHandler:  handlers.NewAdminHandler(app, components.AuditLog),
		HealthHandler: handlers.NewHealthHandler(components.Checks, opts.Logger),
	})

	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		_ = components.Close()
		return nil, err
	}

	return &Server{
		HttpServer: &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second},
		App:        app,
		listener:   listener,
		components: components,
	}, nil
}

// URL returns the base URL the server listens on.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// Start runs the server in a goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.HttpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	err := s.HttpServer.Shutdown(ctx)
	if cerr := s.components.Close(); err == nil {
		err = cerr
	}
	return err
}
