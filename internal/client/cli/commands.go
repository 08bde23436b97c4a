package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	gs "github.com/dmitrijs2005/gophguard/internal/server/grpc"
)

func (a *App) Register(ctx context.Context, args []string) error {
	email, err := a.in.required(args, "Email")
	if err != nil {
		return err
	}
	password, err := a.in.newSecret("Choose password")
	if err != nil {
		return err
	}
	first, err := a.in.line("First name (optional)")
	if err != nil {
		return err
	}
	last, err := a.in.line("Last name (optional)")
	if err != nil {
		return err
	}
	phone, err := a.in.line("Phone, E.164 (optional)")
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.Register(ctx, &gs.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: first,
		LastName:  last,
		Phone:     phone,
	})
	if err != nil {
		return wrapCall(err, nil)
	}

	fmt.Fprintf(a.out, "Registered account %s. Follow the link sent to %s, then run 'verify <token>'.\n", resp.AccountID, email)
	return nil
}

func (a *App) VerifyEmail(ctx context.Context, args []string) error {
	token, err := a.in.required(args, "Verification token")
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if _, err := a.api.VerifyEmail(ctx, &gs.VerifyEmailRequest{Token: token}); err != nil {
		return wrapCall(err, nil)
	}
	fmt.Fprintln(a.out, "E-mail verified, you can login now.")
	return nil
}

func (a *App) ResendVerification(ctx context.Context, args []string) error {
	email, err := a.in.required(args, "Email")
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.ResendVerification(ctx, &gs.ResendVerificationRequest{Email: email})
	if err != nil {
		return wrapCall(err, nil)
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

// Login authenticates with e-mail and password and, when the server asks for
// it, with the one-time code it e-mailed.
func (a *App) Login(ctx context.Context, args []string) error {
	if a.isLoggedIn() {
		return errAlreadyLoggedIn
	}

	email, err := a.in.required(args, "Email")
	if err != nil {
		return err
	}
	password, err := a.in.secret("Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	callCtx, cancel := a.callCtx(ctx)
	defer cancel()

	var trailer metadata.MD
	resp, err := a.api.Login(callCtx, &gs.LoginRequest{
		Email:    email,
		Password: string(password),
		Device:   a.config.Device,
	}, grpc.Trailer(&trailer))
	if err != nil {
		return wrapCall(err, trailer)
	}

	token := resp.AccessToken
	if resp.MFARequired {
		if token, err = a.verifyMFA(ctx, email, resp.AccountID); err != nil {
			return err
		}
	}

	a.setSession(email, resp.AccountID, token)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) verifyMFA(ctx context.Context, email, accountID string) (string, error) {
	fmt.Fprintf(a.out, "A verification code was sent to %s.\n", email)

	code, err := a.in.required(nil, "Code")
	if err != nil {
		return "", err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	var trailer metadata.MD
	resp, err := a.api.VerifyMFA(ctx, &gs.VerifyMFARequest{
		AccountID: accountID,
		Code:      code,
		Device:    a.config.Device,
	}, grpc.Trailer(&trailer))
	if err != nil {
		return "", wrapCall(err, trailer)
	}
	return resp.AccessToken, nil
}

// Logout ends the session. A token the server no longer accepts is
// dropped locally as well.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	ctx, cancel := a.authCtx(ctx)
	defer cancel()

	_, err := a.api.Logout(ctx, &gs.LogoutRequest{AccountID: a.accountID})
	if err != nil && status.Code(err) != codes.Unauthenticated {
		return wrapCall(err, nil)
	}

	a.clearSession()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Events(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	var limit int
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}

	ctx, cancel := a.authCtx(ctx)
	defer cancel()

	resp, err := a.api.LoginEvents(ctx, &gs.LoginEventsRequest{AccountID: a.accountID, Limit: limit})
	if err != nil {
		return wrapCall(err, nil)
	}

	if len(resp.Events) == 0 {
		fmt.Fprintln(a.out, "No login events")
		return nil
	}
	for _, e := range resp.Events {
		fmt.Fprintf(a.out, "%s  %-20s %s\n", e.CreatedAt.Local().Format(time.DateTime), e.Outcome, e.Device)
	}
	return nil
}

func (a *App) ForgotPassword(ctx context.Context, args []string) error {
	email, err := a.in.required(args, "Email")
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.ForgotPassword(ctx, &gs.ForgotPasswordRequest{Email: email})
	if err != nil {
		return wrapCall(err, nil)
	}
	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) ResetPassword(ctx context.Context, args []string) error {
	token, err := a.in.required(args, "Reset token")
	if err != nil {
		return err
	}
	password, err := a.in.newSecret("Choose new password")
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if _, err := a.api.ResetPassword(ctx, &gs.ResetPasswordRequest{Token: token, NewPassword: password}); err != nil {
		return wrapCall(err, nil)
	}
	fmt.Fprintln(a.out, "Password changed, you can login now.")
	return nil
}

func (a *App) Ping(ctx context.Context, _ []string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	resp, err := a.api.Ping(ctx)
	if err != nil {
		return wrapCall(err, nil)
	}
	fmt.Fprintln(a.out, "Server:", resp.Status)
	return nil
}
