package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// protectedMethods need a valid session token in the access_token metadata.
var protectedMethods = map[string]bool{
	fullMethod("Logout"):      true,
	fullMethod("LoginEvents"): true,
}

// unlimitedMethods bypass the rate limiter.
var unlimitedMethods = map[string]bool{
	fullMethod("Ping"): true,
}

func principalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// loggingInterceptor records the method, status code and latency of every call.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	s.metrics.ObserveRPC(info.FullMethod, code.String(), elapsed.Seconds())
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "code", code.String(), "duration", elapsed)
	return resp, err
}

// rateLimitInterceptor throttles calls per method and client address. The
// limiter decides what happens when its backend is down.
func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter == nil || unlimitedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	allowed, err := s.limiter.Allow(ctx, info.FullMethod+"|"+clientAddr(ctx))
	if err != nil {
		s.logger.Warn(ctx, "rate limiter unavailable", "method", info.FullMethod, "error", err)
	}
	if !allowed {
		return nil, toStatus(ctx, common.ErrTooManyRequests)
	}
	return handler(ctx, req)
}

// accessTokenInterceptor resolves the session token of protected calls to a
// principal stored in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	authenticate := s.access.Authenticate
	if info.FullMethod == fullMethod("Logout") {
		authenticate = s.access.AuthenticateForLogout
	}

	principal, err := authenticate(ctx, accessToken)
	if err != nil {
		return nil, s.fail(ctx, "authenticate", err)
	}

	return handler(context.WithValue(ctx, principalKey, principal), req)
}

func clientAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
