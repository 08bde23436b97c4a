package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophguard/internal/client/config"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	gs "github.com/dmitrijs2005/gophguard/internal/server/grpc"
)

// accessClient is the part of gs.Client the console uses.
type accessClient interface {
	Register(ctx context.Context, req *gs.RegisterRequest, opts ...grpc.CallOption) (*gs.RegisterResponse, error)
	VerifyEmail(ctx context.Context, req *gs.VerifyEmailRequest, opts ...grpc.CallOption) (*gs.StatusResponse, error)
	ResendVerification(ctx context.Context, req *gs.ResendVerificationRequest, opts ...grpc.CallOption) (*gs.StatusResponse, error)
	Login(ctx context.Context, req *gs.LoginRequest, opts ...grpc.CallOption) (*gs.LoginResponse, error)
	VerifyMFA(ctx context.Context, req *gs.VerifyMFARequest, opts ...grpc.CallOption) (*gs.VerifyMFAResponse, error)
	Logout(ctx context.Context, req *gs.LogoutRequest, opts ...grpc.CallOption) (*gs.StatusResponse, error)
	ForgotPassword(ctx context.Context, req *gs.ForgotPasswordRequest, opts ...grpc.CallOption) (*gs.StatusResponse, error)
	ResetPassword(ctx context.Context, req *gs.ResetPasswordRequest, opts ...grpc.CallOption) (*gs.StatusResponse, error)
	LoginEvents(ctx context.Context, req *gs.LoginEventsRequest, opts ...grpc.CallOption) (*gs.LoginEventsResponse, error)
	Ping(ctx context.Context, opts ...grpc.CallOption) (*gs.PingResponse, error)
}

type App struct {
	config *config.Config
	api    accessClient
	conn   io.Closer
	in     *prompter
	out    io.Writer

	email     string
	accountID string
	token     string
}

func NewApp(c *config.Config) (*App, error) {
	conn, err := grpc.NewClient(c.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	return newApp(c, gs.NewClient(conn), conn, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api accessClient, conn io.Closer, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: api, conn: conn, in: newPrompter(in, out), out: out}
}

// Run blocks in the REPL and closes the connection when it returns.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.conn != nil {
			_ = a.conn.Close()
		}
	}()

	fmt.Fprintf(a.out, "Welcome to GophGuard console, server %s (type 'help' for commands)\n", a.config.ServerEndpointAddr)
	runREPL(ctx, a, a.status, a.in.in, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return fmt.Sprintf(" (%s)", a.email)
	}
	return ""
}

func (a *App) setSession(email, accountID, token string) {
	a.email, a.accountID, a.token = email, accountID, token
}

func (a *App) clearSession() {
	a.setSession("", "", "")
}

// callCtx bounds a single RPC by the configured request timeout.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// authCtx is callCtx plus the session token metadata.
func (a *App) authCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := a.callCtx(ctx)
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, a.token), cancel
}
