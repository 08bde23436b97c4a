// Package common contains shared constants and sentinel errors used across
// GophGuard components.
package common

// AccessTokenHeaderName is the gRPC metadata key carrying the session token
// on protected calls.
const AccessTokenHeaderName = "access_token"

// GenericResetMessage is returned by forgot-password regardless of whether
// the address belongs to an account.
const GenericResetMessage = "if an account exists for this address, a reset link was sent"

// GenericVerificationMessage is returned by resend-verification regardless of
// whether the address belongs to an account.
const GenericVerificationMessage = "if an unverified account exists for this address, a verification link was sent"
