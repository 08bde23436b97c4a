package common

import "errors"

// Kind classifies errors for callers that need a coarse decision
// (transport status codes, retry policy) rather than the exact cause.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

var kinds = []struct {
	target error
	kind   Kind
}{
	{ErrValidation, KindValidation},

	{ErrInvalidCredentials, KindAuthentication},
	{ErrInvalidCode, KindAuthentication},
	{ErrCodeExpired, KindAuthentication},
	{ErrInvalidToken, KindAuthentication},
	{ErrTokenExpired, KindAuthentication},
	{ErrInvalidOrExpiredToken, KindAuthentication},
	{ErrorUnauthorized, KindAuthentication},

	{ErrSessionAlreadyActive, KindAuthorization},
	{ErrTemporarilyLocked, KindAuthorization},
	{ErrPermanentlyLocked, KindAuthorization},
	{ErrEmailNotVerified, KindAuthorization},
	{ErrAlreadyVerified, KindAuthorization},
	{ErrDuplicateEmail, KindAuthorization},
	{ErrForbidden, KindAuthorization},

	{ErrorNotFound, KindNotFound},

	{ErrTransient, KindTransient},
	{ErrVersionConflict, KindTransient},
	{ErrTooManyRequests, KindTransient},
}

// KindOf reports the taxonomy bucket of err. Unknown errors are internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindInternal
}
