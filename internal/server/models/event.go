package models

import "time"

// EventOutcome labels an entry of the login event log.
type EventOutcome string

const (
	OutcomeMFARequired        EventOutcome = "mfa_required"
	OutcomeSessionIssued      EventOutcome = "session_issued"
	OutcomeInvalidCredentials EventOutcome = "invalid_credentials"
	OutcomeTemporarilyLocked  EventOutcome = "temporarily_locked"
	OutcomePermanentlyLocked  EventOutcome = "permanently_locked"
	OutcomeEmailNotVerified   EventOutcome = "email_not_verified"
	OutcomeSessionConflict    EventOutcome = "session_conflict"
	OutcomeMFAInvalid         EventOutcome = "mfa_invalid"
	OutcomeMFAExpired         EventOutcome = "mfa_expired"
	OutcomeLoggedOut          EventOutcome = "logged_out"
	OutcomePasswordReset      EventOutcome = "password_reset"
)

type LoginEvent struct {
	ID        string
	AccountID string
	Email     string
	Outcome   EventOutcome
	Device    string
	CreatedAt time.Time
}

// Principal is the authenticated caller behind a session token.
type Principal struct {
	AccountID string
	Email     string
	Role      Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
