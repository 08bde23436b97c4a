package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophguard.v1.AccessControl"

// AccessControlServer is the set of unary handlers served under
// ServiceName.
type AccessControlServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	VerifyEmail(context.Context, *VerifyEmailRequest) (*StatusResponse, error)
	ResendVerification(context.Context, *ResendVerificationRequest) (*StatusResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	VerifyMFA(context.Context, *VerifyMFARequest) (*VerifyMFAResponse, error)
	Logout(context.Context, *LogoutRequest) (*StatusResponse, error)
	ForgotPassword(context.Context, *ForgotPasswordRequest) (*StatusResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*StatusResponse, error)
	LoginEvents(context.Context, *LoginEventsRequest) (*LoginEventsResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccessControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", AccessControlServer.Register),
		unary("VerifyEmail", AccessControlServer.VerifyEmail),
		unary("ResendVerification", AccessControlServer.ResendVerification),
		unary("Login", AccessControlServer.Login),
		unary("VerifyMFA", AccessControlServer.VerifyMFA),
		unary("Logout", AccessControlServer.Logout),
		unary("ForgotPassword", AccessControlServer.ForgotPassword),
		unary("ResetPassword", AccessControlServer.ResetPassword),
		unary("LoginEvents", AccessControlServer.LoginEvents),
		unary("Ping", AccessControlServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophguard/v1/access_control",
}

func RegisterAccessControlServer(r grpc.ServiceRegistrar, srv AccessControlServer) {
	r.RegisterService(&serviceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed handler to the untyped shape grpc dispatches to,
// running it through the server's interceptor chain.
func unary[Req, Resp any](name string, call func(AccessControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccessControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AccessControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls AccessControl over conn with the JSON codec.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, name string, req any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.conn.Invoke(ctx, fullMethod(name), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c, "Register", req, opts...)
}

func (c *Client) VerifyEmail(ctx context.Context, req *VerifyEmailRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "VerifyEmail", req, opts...)
}

func (c *Client) ResendVerification(ctx context.Context, req *ResendVerificationRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "ResendVerification", req, opts...)
}

func (c *Client) Login(ctx context.Context, req *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c, "Login", req, opts...)
}

func (c *Client) VerifyMFA(ctx context.Context, req *VerifyMFARequest, opts ...grpc.CallOption) (*VerifyMFAResponse, error) {
	return invoke[VerifyMFAResponse](ctx, c, "VerifyMFA", req, opts...)
}

func (c *Client) Logout(ctx context.Context, req *LogoutRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "Logout", req, opts...)
}

func (c *Client) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "ForgotPassword", req, opts...)
}

func (c *Client) ResetPassword(ctx context.Context, req *ResetPasswordRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "ResetPassword", req, opts...)
}

func (c *Client) LoginEvents(ctx context.Context, req *LoginEventsRequest, opts ...grpc.CallOption) (*LoginEventsResponse, error) {
	return invoke[LoginEventsResponse](ctx, c, "LoginEvents", req, opts...)
}

func (c *Client) Ping(ctx context.Context, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, "Ping", &PingRequest{}, opts...)
}
