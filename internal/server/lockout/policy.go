// Package lockout decides the fate of a password attempt given the account's
// lockout counters. It has no side effects: callers persist the returned
// state.
//
//	stage 0 (open)       N failures -> stage 1, locked for LockDuration
//	stage 1 (locked)     attempts rejected until the window ends
//	stage 1 (2nd chance) counter restarts at 0; N failures -> stage 2
//	stage 2 (permanent)  everything rejected until a password reset
package lockout

import (
	"math"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
)

type Outcome int

const (
	Accepted Outcome = iota
	RejectedInvalidCredentials
	RejectedTemporaryLock
	RejectedPermanentLock
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedInvalidCredentials:
		return "invalid_credentials"
	case RejectedTemporaryLock:
		return "temporary_lock"
	case RejectedPermanentLock:
		return "permanent_lock"
	}
	return "unknown"
}

// Decision is the verdict on one attempt. RemainingAttempts is set for
// RejectedInvalidCredentials; RemainingMinutes and Until for
// RejectedTemporaryLock.
type Decision struct {
	Outcome           Outcome
	RemainingAttempts int
	RemainingMinutes  int
	Until             time.Time
}

// Err converts a rejection into the error surfaced to the caller.
func (d Decision) Err() error {
	switch d.Outcome {
	case Accepted:
		return nil
	case RejectedInvalidCredentials:
		return &common.InvalidCredentialsError{RemainingAttempts: d.RemainingAttempts}
	case RejectedTemporaryLock:
		return &common.TemporaryLockError{Until: d.Until, RemainingMinutes: d.RemainingMinutes}
	default:
		return common.ErrPermanentlyLocked
	}
}

type Policy struct {
	Threshold    int
	LockDuration time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Threshold: 3, LockDuration: 5 * time.Minute}
}

// Evaluate applies one attempt at now. The lock window is half-open:
// at exactly TemporaryLockUntil the attempt is evaluated.
func (p Policy) Evaluate(l models.Lockout, passwordMatches bool, now time.Time) (Decision, models.Lockout) {
	switch l.Stage {
	case models.StagePermanent:
		return Decision{Outcome: RejectedPermanentLock}, l

	case models.StageTemporary:
		if l.TemporaryLockUntil != nil {
			until := *l.TemporaryLockUntil
			if now.Before(until) {
				return Decision{
					Outcome:          RejectedTemporaryLock,
					RemainingMinutes: remainingMinutes(until.Sub(now)),
					Until:            until,
				}, l
			}
			// window over: the second chance starts from zero
			l.FailedAttempts = 0
			l.TemporaryLockUntil = nil
		}

		if passwordMatches {
			return Decision{Outcome: Accepted}, models.Lockout{}
		}

		l.FailedAttempts++
		if l.FailedAttempts >= p.Threshold {
			l.Stage = models.StagePermanent
			return Decision{Outcome: RejectedPermanentLock}, l
		}
		return Decision{Outcome: RejectedInvalidCredentials, RemainingAttempts: p.Threshold - l.FailedAttempts}, l

	default:
		if passwordMatches {
			l.FailedAttempts = 0
			return Decision{Outcome: Accepted}, l
		}

		l.FailedAttempts++
		if l.FailedAttempts >= p.Threshold {
			until := now.Add(p.LockDuration)
			l.Stage = models.StageTemporary
			l.TemporaryLockUntil = &until
			return Decision{
				Outcome:          RejectedTemporaryLock,
				RemainingMinutes: remainingMinutes(p.LockDuration),
				Until:            until,
			}, l
		}
		return Decision{Outcome: RejectedInvalidCredentials, RemainingAttempts: p.Threshold - l.FailedAttempts}, l
	}
}

// Cleared is the unlocked state a password reset restores.
func Cleared() models.Lockout {
	return models.Lockout{}
}

func remainingMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
