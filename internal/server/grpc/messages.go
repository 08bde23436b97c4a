package grpc

import "time"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type RegisterResponse struct {
	AccountID string `json:"account_id"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device,omitempty"`
}

// LoginResponse carries either AccessToken or, with MFARequired, the
// account id to pass to VerifyMFA.
type LoginResponse struct {
	AccountID   string `json:"account_id"`
	MFARequired bool   `json:"mfa_required"`
	AccessToken string `json:"access_token,omitempty"`
}

type VerifyMFARequest struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	Device    string `json:"device,omitempty"`
}

type VerifyMFAResponse struct {
	AccessToken string `json:"access_token"`
}

type LogoutRequest struct {
	AccountID string `json:"account_id"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type LoginEventsRequest struct {
	AccountID string `json:"account_id"`
	Limit     int    `json:"limit,omitempty"`
}

type LoginEvent struct {
	ID        string    `json:"id"`
	Outcome   string    `json:"outcome"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginEventsResponse struct {
	Events []LoginEvent `json:"events"`
}

// StatusResponse is the reply of calls that only report success.
type StatusResponse struct {
	Message string `json:"message,omitempty"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
