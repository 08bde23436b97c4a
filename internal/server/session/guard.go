// Package session enforces one live bearer token per account.
package session

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

// Guard mints session tokens and records them on the account. Like the
// other policy components it only mutates the record it is handed.
type Guard struct {
	tokens *auth.Tokens
	ttl    time.Duration
}

func NewGuard(tokens *auth.Tokens, ttl time.Duration) *Guard {
	return &Guard{tokens: tokens, ttl: ttl}
}

// Acquire issues a token unless a session is already active, in which case
// it returns *common.SessionConflictError naming the holding device.
func (g *Guard) Acquire(a *models.Account, device string, now time.Time) (string, error) {
	if a.Session != nil {
		return "", &common.SessionConflictError{Device: a.Session.Device}
	}

	token, err := g.tokens.Generate(a.ID, a.Role, auth.PurposeSession, g.ttl)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	a.Session = &models.Session{Token: token, Device: device, CreatedAt: now}
	return token, nil
}

// Release clears the session and reports whether there was one.
func (g *Guard) Release(a *models.Account) bool {
	if a.Session == nil {
		return false
	}
	a.Session = nil
	return true
}

// Claims checks the signature and expiry of a presented session token.
func (g *Guard) Claims(token string) (*auth.Claims, error) {
	return g.tokens.Parse(token, auth.PurposeSession)
}

// Validate reports whether token is authentic and is the account's current
// session token. A token from a released or superseded session fails even
// while its signature is still valid.
func (g *Guard) Validate(token string, a *models.Account) bool {
	claims, err := g.Claims(token)
	if err != nil {
		return false
	}
	return holds(claims, token, a)
}

// ClaimsForRelease is Claims without the expiry check. Sessions are never
// revoked on expiry, so the holder must still be able to end one after its
// token lapsed.
func (g *Guard) ClaimsForRelease(token string) (*auth.Claims, error) {
	return g.tokens.ParseIgnoringExpiry(token, auth.PurposeSession)
}

// ValidateForRelease is Validate for a token that may have expired. It still
// has to be the account's current session token.
func (g *Guard) ValidateForRelease(token string, a *models.Account) bool {
	claims, err := g.ClaimsForRelease(token)
	if err != nil {
		return false
	}
	return holds(claims, token, a)
}

func holds(claims *auth.Claims, token string, a *models.Account) bool {
	if claims.UserID != a.ID || a.Session == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.Session.Token), []byte(token)) == 1
}
