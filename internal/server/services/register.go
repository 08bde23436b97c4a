package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/notify"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
}

// Register creates an unverified account and sends the verification link.
// A failed delivery leaves the account in place; ResendVerification
// retries it.
func (s *AccessService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	req.Email = accounts.NormalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	role := models.RoleUser
	if s.isAdmin(req.Email) {
		role = models.RoleAdmin
	}

	now := s.clock.Now()
	account, err := s.repos.Accounts().Create(ctx, &models.Account{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Profile:      models.Profile{FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID, "role", account.Role)
	s.sendVerification(ctx, account)
	return account, nil
}

// VerifyEmail marks the account named by a verification token as verified.
func (s *AccessService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token, auth.PurposeEmailVerification)
	if err != nil {
		return common.ErrInvalidOrExpiredToken
	}

	_, err = s.mutate(ctx, byID(claims.UserID), func(a *models.Account, _ time.Time) change {
		if a.IsVerified {
			return change{result: common.ErrAlreadyVerified}
		}
		a.IsVerified = true
		return change{write: true}
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "email verified", "account_id", claims.UserID)
	return nil
}

// ResendVerification sends a fresh link to an unverified account. Unknown
// and already verified addresses are not distinguishable from the result.
func (s *AccessService) ResendVerification(ctx context.Context, email string) error {
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

	if !account.IsVerified {
		s.sendVerification(ctx, account)
	}
	return nil
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (s *AccessService) sendVerification(ctx context.Context, a *models.Account) {
	token, err := s.tokens.Generate(a.ID, a.Role, auth.PurposeEmailVerification, s.verificationTTL)
	if err != nil {
		s.logger.Error(ctx, "sign verification token", "account_id", a.ID, "error", err)
		return
	}
	s.deliver(ctx, notify.KindVerification, a.ID, func(ctx context.Context) error {
		return s.notifier.SendVerificationLink(ctx, a.Email, token)
	})
}
