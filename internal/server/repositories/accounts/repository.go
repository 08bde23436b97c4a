// Package accounts stores credential records.
//
// Every write after creation is a compare-and-swap on Account.Version:
// Update succeeds only if the stored version still equals the one the caller
// read, and otherwise fails with common.ErrVersionConflict.
package accounts

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. It fails with common.ErrDuplicateEmail
	// when the e-mail is taken. On success Version is 1.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetByResetToken looks an account up by the digest of its reset token.
	GetByResetToken(ctx context.Context, digest string) (*models.Account, error)
	// Update writes every mutable field and bumps Version.
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
}

// NormalizeEmail is the canonical form e-mails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
