package models

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard API response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents an error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// IssueResponse represents the response after issuing a code or link. Delivered
// reports the outcome of the send attempt separately from issuance: the
// challenge exists and is verifiable even when delivery failed.
type IssueResponse struct {
	ID        uuid.UUID `json:"id"`
	Channel   string    `json:"channel"`
	Method    string    `json:"method"`
	Target    string    `json:"target"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Delivered bool      `json:"delivered"`
	Link      string    `json:"link,omitempty"`
}

// VerifyResponse represents the outcome of a verification attempt
type VerifyResponse struct {
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VerificationStatusResponse represents the state of the newest challenge for
// a target and purpose
type VerificationStatusResponse struct {
	Channel      string     `json:"channel"`
	Target       string     `json:"target"`
	Purpose      string     `json:"purpose"`
	Status       string     `json:"status"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	AttemptsLeft int        `json:"attempts_left"`
}

// PublicKeyResponse carries the current public key for client-side encryption
type PublicKeyResponse struct {
	KeyID        uuid.UUID `json:"key_id"`
	PublicKeyPEM string    `json:"public_key_pem"`
}
