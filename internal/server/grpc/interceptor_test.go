package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// ---- fakes ----

type fakeAccess struct {
	principal models.Principal
	authErr   error
	authVia   string

	loginRes *services.LoginResult
	loginErr error

	logoutPrincipal models.Principal
	logoutAccount   string
}

func (f *fakeAccess) Register(context.Context, services.RegisterRequest) (*models.Account, error) {
	return &models.Account{ID: "acc-1"}, nil
}
func (f *fakeAccess) VerifyEmail(context.Context, string) error        { return nil }
func (f *fakeAccess) ResendVerification(context.Context, string) error { return nil }
func (f *fakeAccess) Login(context.Context, services.LoginRequest) (*services.LoginResult, error) {
	return f.loginRes, f.loginErr
}
func (f *fakeAccess) VerifyMFA(context.Context, services.VerifyMFARequest) (string, error) {
	return "token", nil
}
func (f *fakeAccess) Logout(_ context.Context, p models.Principal, accountID string) error {
	f.logoutPrincipal, f.logoutAccount = p, accountID
	return nil
}
func (f *fakeAccess) Authenticate(context.Context, string) (models.Principal, error) {
	f.authVia = "authenticate"
	return f.principal, f.authErr
}
func (f *fakeAccess) AuthenticateForLogout(context.Context, string) (models.Principal, error) {
	f.authVia = "logout"
	return f.principal, f.authErr
}
func (f *fakeAccess) ForgotPassword(context.Context, string) error { return nil }
func (f *fakeAccess) ResetPassword(context.Context, services.ResetPasswordRequest) error {
	return nil
}
func (f *fakeAccess) LoginEvents(context.Context, models.Principal, string, int) ([]models.LoginEvent, error) {
	return nil, nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func newTestServer(t *testing.T, access AccessService) *GRPCServer {
	t.Helper()
	s, err := NewGRPCServer("127.0.0.1:0", logging.Nop{}, access, nil, nil)
	require.NoError(t, err)
	return s
}

func okHandler(called *bool) grpc.UnaryHandler {
	return func(ctx context.Context, req any) (any, error) {
		*called = true
		return "ok", nil
	}
}

// ---- access token ----

func TestAccessTokenInterceptor_UnprotectedPassesWithoutToken(t *testing.T) {
	s := newTestServer(t, &fakeAccess{})
	called := false

	resp, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("Login")}, okHandler(&called))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestAccessTokenInterceptor_MissingToken(t *testing.T) {
	s := newTestServer(t, &fakeAccess{})
	called := false

	_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("Logout")}, okHandler(&called))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())
	assert.False(t, called)
}

func TestAccessTokenInterceptor_InvalidToken(t *testing.T) {
	s := newTestServer(t, &fakeAccess{authErr: common.ErrInvalidToken})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "stale"))
	called := false

	_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("LoginEvents")}, okHandler(&called))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.False(t, called)
}

func TestAccessTokenInterceptor_PutsPrincipalInContext(t *testing.T) {
	want := models.Principal{AccountID: "acc-1", Email: "a@x.com", Role: models.RoleUser}
	s := newTestServer(t, &fakeAccess{principal: want})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "good"))

	var got models.Principal
	h := func(ctx context.Context, req any) (any, error) {
		p, ok := principalFromContext(ctx)
		require.True(t, ok)
		got = p
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("Logout")}, h)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAccessTokenInterceptor_LogoutAcceptsExpiredSession(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "tok"))

	t.Run("logout uses the release check", func(t *testing.T) {
		access := &fakeAccess{principal: models.Principal{AccountID: "acc-1"}}
		s := newTestServer(t, access)
		called := false

		_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("Logout")}, okHandler(&called))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "logout", access.authVia)
	})

	t.Run("other protected calls use the strict check", func(t *testing.T) {
		access := &fakeAccess{principal: models.Principal{AccountID: "acc-1"}}
		s := newTestServer(t, access)
		called := false

		_, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("LoginEvents")}, okHandler(&called))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "authenticate", access.authVia)
	})
}

// ---- rate limit ----

func TestRateLimitInterceptor(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 4242}})
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod("Login")}

	t.Run("denied", func(t *testing.T) {
		l := &fakeLimiter{allow: false}
		s := newTestServer(t, &fakeAccess{})
		s.limiter = l
		called := false

		_, err := s.rateLimitInterceptor(ctx, nil, info, okHandler(&called))
		assert.Equal(t, codes.ResourceExhausted, status.Code(err))
		assert.False(t, called)
		assert.Equal(t, []string{fullMethod("Login") + "|10.0.0.7"}, l.keys)
	})

	t.Run("backend error but allowed", func(t *testing.T) {
		s := newTestServer(t, &fakeAccess{})
		s.limiter = &fakeLimiter{allow: true, err: errors.New("redis down")}
		called := false

		_, err := s.rateLimitInterceptor(ctx, nil, info, okHandler(&called))
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("ping is never limited", func(t *testing.T) {
		l := &fakeLimiter{allow: false}
		s := newTestServer(t, &fakeAccess{})
		s.limiter = l
		called := false

		_, err := s.rateLimitInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod("Ping")}, okHandler(&called))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Empty(t, l.keys)
	})
}

// ---- handlers ----

func TestLogout_DefaultsToCallerAccount(t *testing.T) {
	access := &fakeAccess{}
	s := newTestServer(t, access)
	p := models.Principal{AccountID: "acc-1"}
	ctx := context.WithValue(context.Background(), principalKey, p)

	_, err := s.Logout(ctx, &LogoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, p, access.logoutPrincipal)
	assert.Equal(t, "acc-1", access.logoutAccount)
}

func TestLogout_WithoutPrincipal(t *testing.T) {
	s := newTestServer(t, &fakeAccess{})

	_, err := s.Logout(context.Background(), &LogoutRequest{AccountID: "acc-1"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestNewGRPCServer_RequiresAccess(t *testing.T) {
	_, err := NewGRPCServer(":0", logging.Nop{}, nil, nil, nil)
	require.Error(t, err)
}
