package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/lockout"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/notify"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
)

const resetTokenBytes = 32

// ForgotPassword stores a reset grant for a known address and mails the
// token. The result does not depend on whether the address is known, and
// the grant is written and mailed in the background so the response time
// does not tell either.
func (s *AccessService) ForgotPassword(ctx context.Context, email string) error {
	req := emailRequest{Email: accounts.NormalizeEmail(email)}
	if err := validateRequest(req); err != nil {
		return err
	}

	account, err := s.repos.Accounts().GetByEmail(ctx, req.Email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return storeError(err)
	}

	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("%w: reset token: %v", common.ErrorInternal, err)
	}

	ctx = context.WithoutCancel(ctx)
	s.goBackground(func() {
		s.grantReset(ctx, account, token)
	})
	return nil
}

func (s *AccessService) grantReset(ctx context.Context, account *models.Account, token string) {
	digest := digestToken(token)

	_, err := s.mutate(ctx, byID(account.ID), func(a *models.Account, now time.Time) change {
		a.Reset = &models.ResetGrant{TokenDigest: digest, ExpiresAt: now.Add(s.resetTTL)}
		return change{write: true}
	})
	if errors.Is(err, common.ErrorNotFound) {
		return
	}
	if err != nil {
		s.logger.Error(ctx, "store reset grant failed", "account_id", account.ID, "error", err)
		return
	}

	s.metrics.PasswordResetRequested()
	s.deliver(ctx, notify.KindPasswordReset, account.ID, func(ctx context.Context) error {
		return s.notifier.SendPasswordResetLink(ctx, account.Email, token)
	})
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,max=256"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// ResetPassword replaces the password of the account holding an unexpired
// reset grant for token. It also lifts any lockout, drops the outstanding
// MFA challenge and the trust window, and ends the active session.
func (s *AccessService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	digest := digestToken(req.Token)
	byToken := func(ctx context.Context, repo accounts.Repository) (*models.Account, error) {
		return repo.GetByResetToken(ctx, digest)
	}

	// hashing is slow, so reject unknown tokens before paying for it
	if _, err := byToken(ctx, s.repos.Accounts()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return storeError(err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	released := false
	updated, err := s.mutate(ctx, byToken, func(a *models.Account, now time.Time) change {
		if a.Reset == nil || a.Reset.TokenDigest != digest || now.After(a.Reset.ExpiresAt) {
			return change{result: common.ErrInvalidOrExpiredToken}
		}

		a.PasswordHash = hash
		a.Reset = nil
		a.Lockout = lockout.Cleared()
		a.MFA = nil
		a.LastMFAVerifiedAt = nil
		released = s.sessions.Release(a)
		return change{write: true, event: models.OutcomePasswordReset}
	})
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return err
	}

	s.metrics.PasswordResetCompleted()
	if released {
		s.metrics.SessionReleased()
	}
	s.logger.Info(ctx, "password reset", "account_id", updated.ID)
	return nil
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
