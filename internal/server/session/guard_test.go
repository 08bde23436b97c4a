package session

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 7, 7, 7, 0, 0, 0, time.UTC)

func newGuard() (*Guard, *timex.ManualClock) {
	clock := timex.NewManualClock(t0)
	return NewGuard(auth.NewTokens([]byte("k"), clock), time.Hour), clock
}

func TestAcquire_IssuesAndRecords(t *testing.T) {
	g, _ := newGuard()
	a := &models.Account{ID: "acc", Role: models.RoleAdmin}

	tok, err := g.Acquire(a, "laptop", t0)
	require.NoError(t, err)
	require.NotNil(t, a.Session)
	assert.Equal(t, tok, a.Session.Token)
	assert.Equal(t, "laptop", a.Session.Device)
	assert.Equal(t, t0, a.Session.CreatedAt)

	claims, err := g.Claims(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, t0.Add(time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestAcquire_ConflictNamesDevice(t *testing.T) {
	g, _ := newGuard()
	a := &models.Account{ID: "acc", Session: &models.Session{Token: "old", Device: "phone"}}

	_, err := g.Acquire(a, "laptop", t0)
	var conflict *common.SessionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "phone", conflict.Device)
	assert.ErrorIs(t, err, common.ErrSessionAlreadyActive)
	assert.Equal(t, "old", a.Session.Token)
}

func TestRelease_Idempotent(t *testing.T) {
	g, _ := newGuard()
	a := &models.Account{ID: "acc"}
	_, err := g.Acquire(a, "", t0)
	require.NoError(t, err)

	assert.True(t, g.Release(a))
	assert.Nil(t, a.Session)
	assert.False(t, g.Release(a))
}

func TestValidate(t *testing.T) {
	g, clock := newGuard()
	a := &models.Account{ID: "acc"}

	tok, err := g.Acquire(a, "cli", t0)
	require.NoError(t, err)
	assert.True(t, g.Validate(tok, a))

	t.Run("other account", func(t *testing.T) {
		other := &models.Account{ID: "other", Session: &models.Session{Token: tok}}
		assert.False(t, g.Validate(tok, other))
	})

	t.Run("superseded session", func(t *testing.T) {
		cp := a.Clone()
		g.Release(cp)
		_, err := g.Acquire(cp, "cli", t0)
		require.NoError(t, err)
		assert.False(t, g.Validate(tok, cp))
	})

	t.Run("released", func(t *testing.T) {
		cp := a.Clone()
		g.Release(cp)
		assert.False(t, g.Validate(tok, cp))
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		assert.False(t, g.Validate(tok, a))
	})
}

func TestValidateForRelease(t *testing.T) {
	g, clock := newGuard()
	a := &models.Account{ID: "acc"}

	tok, err := g.Acquire(a, "cli", t0)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = g.Claims(tok)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	assert.False(t, g.Validate(tok, a))
	assert.True(t, g.ValidateForRelease(tok, a))

	t.Run("other account", func(t *testing.T) {
		other := &models.Account{ID: "other", Session: &models.Session{Token: tok}}
		assert.False(t, g.ValidateForRelease(tok, other))
	})

	t.Run("superseded session", func(t *testing.T) {
		cp := a.Clone()
		g.Release(cp)
		_, err := g.Acquire(cp, "cli", t0)
		require.NoError(t, err)
		assert.False(t, g.ValidateForRelease(tok, cp))
	})

	t.Run("released", func(t *testing.T) {
		cp := a.Clone()
		g.Release(cp)
		assert.False(t, g.ValidateForRelease(tok, cp))
	})

	t.Run("garbage", func(t *testing.T) {
		assert.False(t, g.ValidateForRelease("not-a-jwt", a))
	})
}
