package grpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
	"github.com/omega-networks/mapkit-auth/pkg/errors"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// InterceptorChain 拦截器链
type InterceptorChain struct {
	log         logger.Logger
	rateLimiter service.RateLimitService
	metrics     service.Metrics
}

// NewInterceptorChain 创建拦截器链. rateLimiter may be nil.
func NewInterceptorChain(log logger.Logger, rateLimiter service.RateLimitService, metrics service.Metrics) *InterceptorChain {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &InterceptorChain{
		log:         log.WithComponent("grpc"),
		rateLimiter: rateLimiter,
		metrics:     metrics,
	}
}

// UnaryRecoveryInterceptor 恢复拦截器(捕获 panic)
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.String("method", info.FullMethod),
					logger.String("stack", string(debug.Stack())),
				)
				err = status.Error(grpcCodes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// UnaryContextInterceptor copies the request id and client address into the
// context keys read by the application layer and the logger.
func (ic *InterceptorChain) UnaryContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 && ids[0] != "" {
				ctx = context.WithValue(ctx, constants.ContextKeyRequestID, ids[0])
			}
		}
		if ip := clientIP(ctx); ip != "" {
			ctx = context.WithValue(ctx, constants.ContextKeyClientIP, ip)
		}
		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor 日志拦截器
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []logger.Field{
			logger.String("method", info.FullMethod),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("status", status.Code(err).String()),
		}
		if err != nil {
			ic.log.Warn(ctx, "gRPC request failed", append(fields, logger.Error(err))...)
		} else {
			ic.log.Info(ctx, "gRPC request completed", fields...)
		}
		return resp, err
	}
}

// UnaryRateLimitInterceptor applies the rendering budget per peer address.
func (ic *InterceptorChain) UnaryRateLimitInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if ic.rateLimiter == nil || info.FullMethod != IssueTokenMethod {
			return handler(ctx, req)
		}

		identifier := clientIP(ctx)
		allowed, _, _, err := ic.rateLimiter.Allow(ctx, constants.RateLimitScopeRender, identifier)
		if err != nil {
			// 限流服务故障时降级放行
			ic.log.Error(ctx, "rate limit check failed", err, logger.String("method", info.FullMethod))
			return handler(ctx, req)
		}
		if !allowed {
			ic.metrics.RecordRateLimitHit(string(constants.RateLimitScopeRender))
			return nil, errors.ErrRateLimitExceeded()
		}
		return handler(ctx, req)
	}
}

// UnaryErrorInterceptor 错误转换拦截器(将领域错误转换为 gRPC 状态码)
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return resp, ToStatus(err)
	}
}

// ServerOption chains the interceptors in order.
func (ic *InterceptorChain) ServerOption() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(),
		ic.UnaryContextInterceptor(),
		ic.UnaryLoggingInterceptor(),
		ic.UnaryErrorInterceptor(),
		ic.UnaryRateLimitInterceptor(),
	)
}

// ToStatus converts a service error into a gRPC status error. Errors that
// already carry a status are returned unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	mkErr, ok := errors.As(err)
	if !ok {
		return status.Error(grpcCodes.Internal, "internal server error")
	}

	var code grpcCodes.Code
	switch {
	case mkErr.Code() == constants.ErrCodeNotConfigured:
		code = grpcCodes.FailedPrecondition
	case mkErr.HTTPStatus() == http.StatusBadRequest:
		code = grpcCodes.InvalidArgument
	case mkErr.HTTPStatus() == http.StatusUnauthorized:
		code = grpcCodes.Unauthenticated
	case mkErr.HTTPStatus() == http.StatusForbidden:
		code = grpcCodes.PermissionDenied
	case mkErr.HTTPStatus() == http.StatusNotFound:
		code = grpcCodes.NotFound
	case mkErr.HTTPStatus() == http.StatusUnprocessableEntity:
		code = grpcCodes.FailedPrecondition
	case mkErr.HTTPStatus() == http.StatusTooManyRequests:
		code = grpcCodes.ResourceExhausted
	case mkErr.HTTPStatus() == http.StatusServiceUnavailable:
		code = grpcCodes.Unavailable
	default:
		code = grpcCodes.Internal
	}
	return status.Errorf(code, "%s: %s", mkErr.Code(), mkErr.Error())
}

func clientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ips := md.Get("x-forwarded-for"); len(ips) > 0 && ips[0] != "" {
			return ips[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return ""
}
