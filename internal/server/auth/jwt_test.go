package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newTokens() (*Tokens, *timex.ManualClock) {
	clock := timex.NewManualClock(start)
	return NewTokens([]byte("super-secret"), clock), clock
}

func TestGenerateAndParse(t *testing.T) {
	tokens, _ := newTokens()

	tok, err := tokens.Generate("user-123", models.RoleAdmin, PurposeSession, time.Hour)
	require.NoError(t, err)

	claims, err := tokens.Parse(tok, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, start.Add(time.Hour), claims.ExpiresAt.Time.UTC())
	assert.NotEmpty(t, claims.ID)
}

func TestGenerate_UniquePerCall(t *testing.T) {
	tokens, _ := newTokens()

	a, err := tokens.Generate("u", models.RoleUser, PurposeSession, time.Hour)
	require.NoError(t, err)
	b, err := tokens.Generate("u", models.RoleUser, PurposeSession, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParse_Expired(t *testing.T) {
	tokens, clock := newTokens()

	tok, err := tokens.Generate("u1", models.RoleUser, PurposeSession, time.Hour)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	_, err = tokens.Parse(tok, PurposeSession)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_Rejections(t *testing.T) {
	tokens, _ := newTokens()

	tok, err := tokens.Generate("u2", models.RoleUser, PurposeEmailVerification, time.Hour)
	require.NoError(t, err)

	t.Run("wrong purpose", func(t *testing.T) {
		_, err := tokens.Parse(tok, PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens([]byte("other"), timex.NewManualClock(start))
		_, err := other.Parse(tok, PurposeEmailVerification)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-jwt", PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: jwt.NewNumericDate(start.Add(time.Hour))},
			UserID:           "u2",
			Purpose:          PurposeSession,
		})
		s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Parse(s, PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
			UserID:           "u2",
			Purpose:          PurposeSession,
		})
		s, err := raw.SignedString([]byte("super-secret"))
		require.NoError(t, err)

		_, err = tokens.Parse(s, PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})
}

func TestParseIgnoringExpiry(t *testing.T) {
	tokens, clock := newTokens()

	tok, err := tokens.Generate("u3", models.RoleUser, PurposeSession, time.Hour)
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	_, err = tokens.Parse(tok, PurposeSession)
	require.ErrorIs(t, err, common.ErrTokenExpired)

	claims, err := tokens.ParseIgnoringExpiry(tok, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "u3", claims.UserID)

	t.Run("wrong purpose", func(t *testing.T) {
		_, err := tokens.ParseIgnoringExpiry(tok, PurposeEmailVerification)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens([]byte("other"), clock)
		_, err := other.ParseIgnoringExpiry(tok, PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(start)},
			UserID:           "u3",
			Purpose:          PurposeSession,
		})
		s, err := raw.SignedString([]byte("super-secret"))
		require.NoError(t, err)

		_, err = tokens.ParseIgnoringExpiry(s, PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
			UserID:           "u3",
			Purpose:          PurposeSession,
		})
		s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.ParseIgnoringExpiry(s, PurposeSession)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})
}
