package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	domainService "github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// Server bundles the grpc.Server with its health service.
type Server struct {
	*grpc.Server
	Health *health.Server

	store repository.CredentialRepository
	log   logger.Logger
}

// NewServer registers mapkit.v1.TokenService and grpc.health.v1.Health.
// 创建 gRPC 服务器
func NewServer(
	app service.MapKitAppService,
	store repository.CredentialRepository,
	rateLimiter domainService.RateLimitService,
	metrics domainService.Metrics,
	log logger.Logger,
	opts ...grpc.ServerOption,
) *Server {
	chain := NewInterceptorChain(log, rateLimiter, metrics)
	srv := grpc.NewServer(append([]grpc.ServerOption{chain.ServerOption()}, opts...)...)

	srv.RegisterService(&TokenServiceDesc, &tokenServer{app: app, log: chain.log})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(TokenServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{Server: srv, Health: hs, store: store, log: chain.log}
}

// RefreshHealth sets TokenService to SERVING when the stored credentials are
// authorized and NOT_SERVING otherwise. The overall status tracks store reachability.
func (s *Server) RefreshHealth(ctx context.Context) {
	cred, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "credential store unavailable for health check", logger.Error(err))
		s.Health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		s.Health.SetServingStatus(TokenServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if cred.Authorized() {
		s.Health.SetServingStatus(TokenServiceName, healthpb.HealthCheckResponse_SERVING)
	} else {
		s.Health.SetServingStatus(TokenServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// WatchHealth refreshes the health status every interval until ctx is done.
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration) {
	s.RefreshHealth(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshHealth(ctx)
		}
	}
}

// Shutdown stops accepting RPCs and waits for in-flight ones, forcing a stop
// when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) {
	s.Health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}
