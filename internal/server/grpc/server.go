// Package grpc exposes the access-control facade as the
// gophguard.v1.AccessControl gRPC service. Messages are plain structs sent
// with a JSON codec.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"google.golang.org/grpc"
)

// AccessService is the part of services.AccessService the transport calls.
type AccessService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.Account, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	VerifyMFA(ctx context.Context, req services.VerifyMFARequest) (string, error)
	Logout(ctx context.Context, principal models.Principal, accountID string) error
	Authenticate(ctx context.Context, token string) (models.Principal, error)
	AuthenticateForLogout(ctx context.Context, token string) (models.Principal, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req services.ResetPasswordRequest) error
	LoginEvents(ctx context.Context, principal models.Principal, accountID string, limit int) ([]models.LoginEvent, error)
}

type GRPCServer struct {
	address string
	access  AccessService
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewGRPCServer wires the handlers. limiter and m may be nil.
func NewGRPCServer(address string, l logging.Logger, access AccessService, limiter ratelimit.Limiter, m *metrics.Metrics) (*GRPCServer, error) {
	if access == nil {
		return nil, errors.New("grpc server: access service is required")
	}
	return &GRPCServer{
		address: address,
		access:  access,
		limiter: limiter,
		metrics: m,
		logger:  l.With("module", "grpc_server"),
	}, nil
}

// newServer builds the grpc.Server with the interceptor chain and the
// service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		s.rateLimitInterceptor,
		s.accessTokenInterceptor,
	))
	RegisterAccessControlServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
