package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	appservice "github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/internal/bootstrap"
	"github.com/omega-networks/mapkit-auth/internal/config"
	domainservice "github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/internal/infrastructure/monitoring"
	grpcserver "github.com/omega-networks/mapkit-auth/internal/interfaces/grpc"
	"github.com/omega-networks/mapkit-auth/internal/interfaces/http"
	"github.com/omega-networks/mapkit-auth/internal/interfaces/http/handlers"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

const grpcHealthInterval = 30 * time.Second

func main() {
	var opts config.LoadOptions
	pflag.StringVarP(&opts.ConfigFile, "config", "c", "", "path to the configuration file")
	pflag.StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before the environment")
	pflag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("mapkit-auth: %v", err)
	}
}

func run(opts config.LoadOptions) error {
	// Logger for startup
	startupLogger, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})

	var appLogger logger.Logger
	opts.OnChange = func(cfg *config.Config) {
		if appLogger != nil {
			monitoring.SetLevel(appLogger, cfg.Log.Level)
		}
	}

	cfg, err := config.LoadConfig(startupLogger, opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLogger, err = monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化链路追踪
	tracing, err := monitoring.NewTracingManager(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	metrics := monitoring.NewMetrics(nil)
	domainMetrics := monitoring.NewMetricsAdapter(metrics)

	// 初始化基础设施
	components, err := bootstrap.Build(ctx, cfg, domainMetrics, appLogger)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}
	defer components.Close()

	issuer := domainservice.NewTokenIssuer(
		domainservice.OriginPolicy{SiteURL: cfg.Site.URL, Local: cfg.Site.IsLocal()},
		time.Now,
		appLogger,
	)
	if err := bootstrap.SeedCredentials(ctx, cfg.Credentials, components.Store, issuer, appLogger); err != nil {
		return fmt.Errorf("seed credentials: %w", err)
	}

	integrity := domainservice.NewIntegrityService(cfg.Integrity.Secret, cfg.Integrity.Lifetime, time.Now)
	app := appservice.NewMapKitAppService(issuer, components.Store, integrity, components.Audit, domainMetrics, appLogger)

	router := http.NewRouter(http.RouterDependencies{
		Config:        cfg,
		Logger:        appLogger,
		Tracer:        tracing.Tracer(),
		Metrics:       metrics,
		RateLimiter:   components.RateLimiter,
		MapKitHandler: handlers.NewMapKitHandler(app, appLogger),
		AdminHandler:  handlers.NewAdminHandler(app, components.AuditLog),
		HealthHandler: handlers.NewHealthHandler(components.Checks, appLogger),
	})
	httpServer := http.NewServer(&cfg.Server, router)

	grpcServer := grpcserver.NewServer(app, components.Store, components.RateLimiter, domainMetrics, appLogger)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info(gctx, "HTTP server listening", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		appLogger.Info(gctx, "gRPC server listening", logger.String("addr", grpcListener.Addr().String()))
		return grpcServer.Serve(grpcListener)
	})
	g.Go(func() error {
		grpcServer.WatchHealth(gctx, grpcHealthInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcServer.Shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), "Server stopped with error", err)
		return err
	}
	appLogger.Info(context.Background(), "Server stopped")
	return nil
}
