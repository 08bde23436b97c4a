// Package common defines shared constants and sentinel errors used across
// the server layers of GophGuard. Callers should use errors.Is to match
// these values and errors.As to extract detail types.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicateEmail  = errors.New("email already registered")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTransient       = errors.New("temporarily unavailable")
	ErrTooManyRequests = errors.New("too many requests")

	// Validation errors.
	ErrValidation = errors.New("validation error")

	// Credential and lockout errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTemporarilyLocked  = errors.New("account temporarily locked")
	ErrPermanentlyLocked  = errors.New("account permanently locked")
	ErrEmailNotVerified   = errors.New("email not verified")

	// MFA errors.
	ErrInvalidCode = errors.New("invalid code")
	ErrCodeExpired = errors.New("code expired")

	// Session errors.
	ErrSessionAlreadyActive = errors.New("session already active")

	// Token errors.
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrAlreadyVerified       = errors.New("email already verified")
)
