// Package grpc exposes token issuance over gRPC using well-known protobuf types,
// so no generated code is required.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/omega-networks/mapkit-auth/internal/application/service"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

const (
	// TokenServiceName is the fully qualified gRPC service name.
	TokenServiceName = "mapkit.v1.TokenService"

	// IssueTokenMethod is the full method name of IssueToken.
	IssueTokenMethod = "/" + TokenServiceName + "/IssueToken"

	// HeaderExpiresAt carries the RFC 3339 expiry of the returned token.
	HeaderExpiresAt = "x-token-expires-at"
)

// TokenServiceServer is the server API for mapkit.v1.TokenService.
type TokenServiceServer interface {
	// IssueToken returns a rendering token signed with the stored credentials.
	IssueToken(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// TokenServiceDesc describes mapkit.v1.TokenService for grpc.Server.RegisterService.
var TokenServiceDesc = grpc.ServiceDesc{
	ServiceName: TokenServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IssueToken", Handler: issueTokenHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mapkit/v1/token.proto",
}

func issueTokenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).IssueToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IssueTokenMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TokenServiceServer).IssueToken(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// TokenServiceClient is the client API for mapkit.v1.TokenService.
type TokenServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTokenServiceClient 创建 gRPC 令牌客户端
func NewTokenServiceClient(cc grpc.ClientConnInterface) *TokenServiceClient {
	return &TokenServiceClient{cc: cc}
}

// IssueToken calls mapkit.v1.TokenService/IssueToken.
func (c *TokenServiceClient) IssueToken(ctx context.Context, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, IssueTokenMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// tokenServer adapts MapKitAppService to TokenServiceServer.
type tokenServer struct {
	app service.MapKitAppService
	log logger.Logger
}

func (s *tokenServer) IssueToken(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	resp, err := s.app.IssueRenderToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(HeaderExpiresAt, resp.ExpiresAt.UTC().Format(time.RFC3339))); err != nil {
		s.log.Warn(ctx, "Failed to set response header", logger.Error(err))
	}
	return wrapperspb.String(resp.Token), nil
}
