// Package auth issues and parses the signed tokens handed to clients:
// session bearer tokens and e-mail verification tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "gophguard"

// Purpose keeps a token minted for one flow from being replayed in another.
type Purpose string

const (
	PurposeSession           Purpose = "session"
	PurposeEmailVerification Purpose = "email_verification"
)

// Claims are the registered claims plus the account the token belongs to.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string      `json:"uid"`
	Role    models.Role `json:"role,omitempty"`
	Purpose Purpose     `json:"purpose"`
}

// Tokens signs with HS256 and reads "now" from the injected clock.
type Tokens struct {
	secret []byte
	clock  timex.Clock
}

func NewTokens(secret []byte, clock timex.Clock) *Tokens {
	return &Tokens{secret: secret, clock: clock}
}

func (t *Tokens) Generate(userID string, role models.Role, purpose Purpose, validity time.Duration) (string, error) {
	now := t.clock.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
	})

	return token.SignedString(t.secret)
}

// Parse validates signature, expiry and purpose.
// Expired tokens yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (t *Tokens) Parse(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Purpose != purpose || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// ParseIgnoringExpiry checks signature, issuer and purpose but accepts a
// token past its expiry. Only the session release path uses it.
func (t *Tokens) ParseIgnoringExpiry(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Issuer != issuer || claims.Purpose != purpose || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
