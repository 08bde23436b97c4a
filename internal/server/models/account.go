// Package models defines server-side data models persisted in the database.
package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Profile is free-form contact data captured at registration.
type Profile struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LockoutStage is the coarse phase of progressive lockout.
type LockoutStage int

const (
	StageOpen      LockoutStage = 0 // no lock history
	StageTemporary LockoutStage = 1 // one temporary lock issued
	StagePermanent LockoutStage = 2
)

// Lockout groups the failed-attempt counters of an account.
// TemporaryLockUntil is only ever set while Stage is StageTemporary.
type Lockout struct {
	Stage              LockoutStage
	FailedAttempts     int
	TemporaryLockUntil *time.Time
}

func (l Lockout) PermanentlyLocked() bool { return l.Stage == StagePermanent }

// LockoutState is the lockout phase as seen at a given instant.
type LockoutState int

const (
	LockoutOpen LockoutState = iota
	LockoutTemporarilyLocked
	LockoutSecondChance
	LockoutPermanentlyLocked
)

func (s LockoutState) String() string {
	switch s {
	case LockoutOpen:
		return "open"
	case LockoutTemporarilyLocked:
		return "temporarily_locked"
	case LockoutSecondChance:
		return "second_chance"
	case LockoutPermanentlyLocked:
		return "permanently_locked"
	}
	return "unknown"
}

// State reports the phase at now. The lock window is half-open:
// now == TemporaryLockUntil is already past the lock.
func (l Lockout) State(now time.Time) LockoutState {
	switch l.Stage {
	case StagePermanent:
		return LockoutPermanentlyLocked
	case StageTemporary:
		if l.TemporaryLockUntil != nil && now.Before(*l.TemporaryLockUntil) {
			return LockoutTemporarilyLocked
		}
		return LockoutSecondChance
	default:
		return LockoutOpen
	}
}

// MFAChallenge is an outstanding one-time code.
type MFAChallenge struct {
	Code      string
	ExpiresAt time.Time
}

// Session is the single live bearer token of an account.
type Session struct {
	Token     string
	Device    string
	CreatedAt time.Time
}

type SessionState int

const (
	SessionNone SessionState = iota
	SessionActive
)

func (s SessionState) String() string {
	if s == SessionActive {
		return "active"
	}
	return "none"
}

// ResetGrant is a pending password reset. Only the SHA-256 digest of the
// token handed to the user is kept.
type ResetGrant struct {
	TokenDigest string
	ExpiresAt   time.Time
}

// Account is the credential record of one user.
//
// Pointer fields model the optional column groups; a nil pointer means the
// whole group is absent, so half-set pairs cannot be expressed.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Profile      Profile
	IsVerified   bool

	Lockout           Lockout
	MFA               *MFAChallenge
	LastMFAVerifiedAt *time.Time
	Session           *Session
	Reset             *ResetGrant

	// Version is bumped by every successful update and guards
	// compare-and-swap writes.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Account) SessionState() SessionState {
	if a.Session != nil {
		return SessionActive
	}
	return SessionNone
}

func (a *Account) LockoutState(now time.Time) LockoutState {
	return a.Lockout.State(now)
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Lockout.TemporaryLockUntil = cloneTime(a.Lockout.TemporaryLockUntil)
	c.LastMFAVerifiedAt = cloneTime(a.LastMFAVerifiedAt)
	if a.MFA != nil {
		m := *a.MFA
		c.MFA = &m
	}
	if a.Session != nil {
		s := *a.Session
		c.Session = &s
	}
	if a.Reset != nil {
		r := *a.Reset
		c.Reset = &r
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
