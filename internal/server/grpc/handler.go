package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
)

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	account, err := s.access.Register(ctx, services.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return nil, s.fail(ctx, "register", err)
	}
	return &RegisterResponse{AccountID: account.ID}, nil
}

func (s *GRPCServer) VerifyEmail(ctx context.Context, req *VerifyEmailRequest) (*StatusResponse, error) {
	if err := s.access.VerifyEmail(ctx, req.Token); err != nil {
		return nil, s.fail(ctx, "verify email", err)
	}
	return &StatusResponse{Message: "email verified"}, nil
}

func (s *GRPCServer) ResendVerification(ctx context.Context, req *ResendVerificationRequest) (*StatusResponse, error) {
	if err := s.access.ResendVerification(ctx, req.Email); err != nil {
		return nil, s.fail(ctx, "resend verification", err)
	}
	return &StatusResponse{Message: common.GenericVerificationMessage}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	res, err := s.access.Login(ctx, services.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Device:   req.Device,
	})
	if err != nil {
		return nil, s.fail(ctx, "login", err)
	}
	return &LoginResponse{AccountID: res.AccountID, MFARequired: res.MFARequired, AccessToken: res.Token}, nil
}

func (s *GRPCServer) VerifyMFA(ctx context.Context, req *VerifyMFARequest) (*VerifyMFAResponse, error) {
	token, err := s.access.VerifyMFA(ctx, services.VerifyMFARequest{
		AccountID: req.AccountID,
		Code:      req.Code,
		Device:    req.Device,
	})
	if err != nil {
		return nil, s.fail(ctx, "verify mfa", err)
	}
	return &VerifyMFAResponse{AccessToken: token}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *LogoutRequest) (*StatusResponse, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return nil, s.fail(ctx, "logout", common.ErrorUnauthorized)
	}

	accountID := req.AccountID
	if accountID == "" {
		accountID = principal.AccountID
	}
	if err := s.access.Logout(ctx, principal, accountID); err != nil {
		return nil, s.fail(ctx, "logout", err)
	}
	return &StatusResponse{Message: "logged out"}, nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (*StatusResponse, error) {
	if err := s.access.ForgotPassword(ctx, req.Email); err != nil {
		return nil, s.fail(ctx, "forgot password", err)
	}
	return &StatusResponse{Message: common.GenericResetMessage}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*StatusResponse, error) {
	err := s.access.ResetPassword(ctx, services.ResetPasswordRequest{Token: req.Token, NewPassword: req.NewPassword})
	if err != nil {
		return nil, s.fail(ctx, "reset password", err)
	}
	return &StatusResponse{Message: "password changed"}, nil
}

func (s *GRPCServer) LoginEvents(ctx context.Context, req *LoginEventsRequest) (*LoginEventsResponse, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return nil, s.fail(ctx, "login events", common.ErrorUnauthorized)
	}

	accountID := req.AccountID
	if accountID == "" {
		accountID = principal.AccountID
	}
	events, err := s.access.LoginEvents(ctx, principal, accountID, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, "login events", err)
	}

	out := make([]LoginEvent, 0, len(events))
	for _, e := range events {
		out = append(out, LoginEvent{ID: e.ID, Outcome: string(e.Outcome), Device: e.Device, CreatedAt: e.CreatedAt})
	}
	return &LoginEventsResponse{Events: out}, nil
}

func (s *GRPCServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

// fail logs unexpected errors and converts err for the wire.
func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	switch common.KindOf(err) {
	case common.KindInternal:
		s.logger.Error(ctx, op+" failed", "error", err)
	case common.KindTransient:
		s.logger.Warn(ctx, op+" failed", "error", err)
	}
	return toStatus(ctx, err)
}
