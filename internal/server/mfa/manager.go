// Package mfa manages the one-time numeric codes of the second login factor
// and the trust window that lets recent verifications skip a new challenge.
package mfa

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// Manager issues and checks codes. It mutates the account it is given and
// leaves persisting to the caller.
type Manager struct {
	CodeTTL     time.Duration
	TrustWindow time.Duration
	rand        io.Reader
}

func NewManager(codeTTL, trustWindow time.Duration) *Manager {
	return &Manager{CodeTTL: codeTTL, TrustWindow: trustWindow, rand: rand.Reader}
}

// Issue stores a fresh code on the account, replacing any outstanding one,
// and returns it for delivery.
func (m *Manager) Issue(a *models.Account, now time.Time) (string, error) {
	n, err := rand.Int(m.rand, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate mfa code: %w", err)
	}
	code := fmt.Sprintf("%0*d", codeDigits, n.Int64())

	a.MFA = &models.MFAChallenge{Code: code, ExpiresAt: now.Add(m.CodeTTL)}
	return code, nil
}

// TrustWindowValid reports whether a verification happened within the trust
// window. The window is half-open: at exactly LastMFAVerifiedAt+TrustWindow
// a new challenge is due.
func (m *Manager) TrustWindowValid(a *models.Account, now time.Time) bool {
	if a.LastMFAVerifiedAt == nil {
		return false
	}
	return now.Before(a.LastMFAVerifiedAt.Add(m.TrustWindow))
}

// Verify consumes the outstanding code. A missing or different code is
// common.ErrInvalidCode; a matching code past its expiry is
// common.ErrCodeExpired and stays on the account. On success the code is
// cleared and the trust window restarts at now.
func (m *Manager) Verify(a *models.Account, submitted string, now time.Time) error {
	if a.MFA == nil || subtle.ConstantTimeCompare([]byte(a.MFA.Code), []byte(submitted)) != 1 {
		return common.ErrInvalidCode
	}
	if now.After(a.MFA.ExpiresAt) {
		return common.ErrCodeExpired
	}

	verifiedAt := now
	a.MFA = nil
	a.LastMFAVerifiedAt = &verifiedAt
	return nil
}
