package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/lockout"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/notify"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	Device   string `json:"device" validate:"max=128"`
}

// LoginResult is either a session token or, when MFARequired is set, the
// account to complete the second factor for.
type LoginResult struct {
	AccountID   string
	MFARequired bool
	Token       string
}

// Login checks the password under the lockout policy. A verified account
// without a session either gets a token straight away, inside the MFA
// trust window, or a fresh MFA challenge.
func (s *AccessService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = accounts.NormalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	account, err := s.repos.Accounts().GetByEmail(ctx, req.Email)
	if errors.Is(err, common.ErrorNotFound) {
		// same work and same answer as a wrong password on a fresh account
		_, _ = s.hasher.Compare(s.dummyHash, req.Password)
		s.metrics.LoginAttempt(string(models.OutcomeInvalidCredentials))
		return nil, &common.InvalidCredentialsError{RemainingAttempts: s.policy.Threshold - 1}
	}
	if err != nil {
		return nil, storeError(err)
	}

	checkedHash := account.PasswordHash
	matches, err := s.hasher.Compare(checkedHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: compare password: %v", common.ErrorInternal, err)
	}

	var (
		result  LoginResult
		code    string
		outcome models.EventOutcome
		engaged models.LockoutStage
	)

	updated, err := s.mutate(ctx, byID(account.ID), func(a *models.Account, now time.Time) change {
		result, code, engaged = LoginResult{AccountID: a.ID}, "", models.StageOpen

		if a.PasswordHash != checkedHash {
			// a reset landed since the first read
			checkedHash = a.PasswordHash
			matches, _ = s.hasher.Compare(checkedHash, req.Password)
		}

		before := a.Lockout
		decision, next := s.policy.Evaluate(a.Lockout, matches, now)
		a.Lockout = next
		lockChanged := !sameLockout(before, next)
		if next.Stage > before.Stage {
			engaged = next.Stage
		}

		c := change{write: lockChanged, device: req.Device}

		switch {
		case decision.Outcome != lockout.Accepted:
			c.event, c.result = rejectionOutcome(decision.Outcome), decision.Err()
		case !a.IsVerified:
			c.event, c.result = models.OutcomeEmailNotVerified, common.ErrEmailNotVerified
		case a.Session != nil:
			c.event, c.result = models.OutcomeSessionConflict, &common.SessionConflictError{Device: a.Session.Device}
		case s.mfa.TrustWindowValid(a, now):
			token, err := s.sessions.Acquire(a, req.Device, now)
			if err != nil {
				c.result = fmt.Errorf("%w: %v", common.ErrorInternal, err)
				break
			}
			result.Token = token
			c.write, c.event = true, models.OutcomeSessionIssued
		default:
			issued, err := s.mfa.Issue(a, now)
			if err != nil {
				c.result = fmt.Errorf("%w: %v", common.ErrorInternal, err)
				break
			}
			code, result.MFARequired = issued, true
			c.write, c.event = true, models.OutcomeMFARequired
		}

		outcome = c.event
		return c
	})

	if updated != nil {
		s.metrics.LoginAttempt(string(outcome))
		if engaged != models.StageOpen {
			s.countLockout(ctx, account.ID, engaged)
		}
	}
	if err != nil {
		return nil, err
	}

	switch {
	case result.MFARequired:
		s.metrics.MFAIssued()
		s.deliver(ctx, notify.KindMFACode, account.ID, func(ctx context.Context) error {
			return s.notifier.SendMFACode(ctx, account.Email, code)
		})
	case result.Token != "":
		s.metrics.SessionAcquired()
		s.logger.Info(ctx, "session issued", "account_id", account.ID, "device", req.Device, "mfa", "trusted")
	}
	return &result, nil
}

func rejectionOutcome(o lockout.Outcome) models.EventOutcome {
	switch o {
	case lockout.RejectedTemporaryLock:
		return models.OutcomeTemporarilyLocked
	case lockout.RejectedPermanentLock:
		return models.OutcomePermanentlyLocked
	default:
		return models.OutcomeInvalidCredentials
	}
}

type VerifyMFARequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
	Device    string `json:"device" validate:"max=128"`
}

// VerifyMFA completes a login with the emailed code and returns the session
// token. An unknown account is reported as an invalid code.
func (s *AccessService) VerifyMFA(ctx context.Context, req VerifyMFARequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	var (
		token  string
		result string
	)

	updated, err := s.mutate(ctx, byID(req.AccountID), func(a *models.Account, now time.Time) change {
		token, result = "", ""
		c := change{device: req.Device}

		if a.Session != nil {
			result = "session_conflict"
			c.event, c.result = models.OutcomeSessionConflict, &common.SessionConflictError{Device: a.Session.Device}
			return c
		}
		if a.Lockout.PermanentlyLocked() {
			result = "locked"
			c.event, c.result = models.OutcomePermanentlyLocked, common.ErrPermanentlyLocked
			return c
		}

		switch err := s.mfa.Verify(a, req.Code, now); {
		case errors.Is(err, common.ErrCodeExpired):
			result = "expired"
			c.event, c.result = models.OutcomeMFAExpired, err
			return c
		case err != nil:
			result = "invalid"
			c.event, c.result = models.OutcomeMFAInvalid, err
			return c
		}

		issued, err := s.sessions.Acquire(a, req.Device, now)
		if err != nil {
			c.result = fmt.Errorf("%w: %v", common.ErrorInternal, err)
			return c
		}
		token, result = issued, "success"
		c.write, c.event = true, models.OutcomeSessionIssued
		return c
	})

	if errors.Is(err, common.ErrorNotFound) {
		s.metrics.MFAVerification("invalid")
		return "", common.ErrInvalidCode
	}
	if updated != nil && result != "" {
		s.metrics.MFAVerification(result)
	}
	if err != nil {
		return "", err
	}

	s.metrics.SessionAcquired()
	s.logger.Info(ctx, "session issued", "account_id", req.AccountID, "device", req.Device, "mfa", "verified")
	return token, nil
}

// Logout releases the caller's session. Releasing an account without a
// session succeeds.
func (s *AccessService) Logout(ctx context.Context, principal models.Principal, accountID string) error {
	if principal.AccountID != accountID {
		return common.ErrForbidden
	}

	released := false
	_, err := s.mutate(ctx, byID(accountID), func(a *models.Account, _ time.Time) change {
		device := ""
		if a.Session != nil {
			device = a.Session.Device
		}
		released = s.sessions.Release(a)
		if !released {
			return change{}
		}
		return change{write: true, event: models.OutcomeLoggedOut, device: device}
	})
	if err != nil {
		return err
	}

	if released {
		s.metrics.SessionReleased()
		s.logger.Info(ctx, "session released", "account_id", accountID)
	}
	return nil
}

// Authenticate resolves a bearer token to its principal. The token must
// still be the account's current session token.
func (s *AccessService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	claims, err := s.sessions.Claims(token)
	if err != nil {
		return models.Principal{}, err
	}
	return s.principalFor(ctx, claims.UserID, func(a *models.Account) bool {
		return s.sessions.Validate(token, a)
	})
}

// AuthenticateForLogout is Authenticate for the logout route. An expired
// token is accepted as long as it is still the account's current session
// token, otherwise the account could not log in again until a password reset.
func (s *AccessService) AuthenticateForLogout(ctx context.Context, token string) (models.Principal, error) {
	claims, err := s.sessions.ClaimsForRelease(token)
	if err != nil {
		return models.Principal{}, err
	}
	return s.principalFor(ctx, claims.UserID, func(a *models.Account) bool {
		return s.sessions.ValidateForRelease(token, a)
	})
}

func (s *AccessService) principalFor(ctx context.Context, accountID string, holds func(*models.Account) bool) (models.Principal, error) {
	a, err := s.repos.Accounts().GetByID(ctx, accountID)
	if errors.Is(err, common.ErrorNotFound) {
		return models.Principal{}, common.ErrInvalidToken
	}
	if err != nil {
		return models.Principal{}, storeError(err)
	}

	if !holds(a) {
		return models.Principal{}, common.ErrInvalidToken
	}
	return models.Principal{AccountID: a.ID, Email: a.Email, Role: a.Role}, nil
}

func (s *AccessService) countLockout(ctx context.Context, accountID string, stage models.LockoutStage) {
	switch stage {
	case models.StageTemporary:
		s.metrics.Lockout("temporary")
		s.logger.Warn(ctx, "account temporarily locked", "account_id", accountID)
	case models.StagePermanent:
		s.metrics.Lockout("permanent")
		s.logger.Warn(ctx, "account permanently locked", "account_id", accountID)
	}
}
