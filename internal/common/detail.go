package common

import (
	"fmt"
	"time"
)

// ValidationError identifies the malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidCredentialsError is returned for a failed password check that did
// not trip a lock.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string { return ErrInvalidCredentials.Error() }

func (e *InvalidCredentialsError) Unwrap() error { return ErrInvalidCredentials }

// TemporaryLockError carries the lock window so callers can tell the user
// when to retry.
type TemporaryLockError struct {
	Until            time.Time
	RemainingMinutes int
}

func (e *TemporaryLockError) Error() string {
	return fmt.Sprintf("%s: try again in %d minute(s)", ErrTemporarilyLocked, e.RemainingMinutes)
}

func (e *TemporaryLockError) Unwrap() error { return ErrTemporarilyLocked }

// SessionConflictError names the device that currently holds the session.
type SessionConflictError struct {
	Device string
}

func (e *SessionConflictError) Error() string {
	if e.Device == "" {
		return ErrSessionAlreadyActive.Error()
	}
	return fmt.Sprintf("%s on device %q", ErrSessionAlreadyActive, e.Device)
}

func (e *SessionConflictError) Unwrap() error { return ErrSessionAlreadyActive }
