package services

import (
	"fmt"
	"time"
)

// Verification failure reasons, carried on VerificationError for callers that
// want more than the message text.
const (
	ReasonNotFound    = "not_found"
	ReasonExpired     = "expired"
	ReasonMaxAttempts = "max_attempts"
	ReasonMismatch    = "mismatch"
	ReasonConsumed    = "consumed"
)

// RateLimitError reports that issuance was blocked because too many requests
// were created for the target inside the lookback window. Callers translate
// it to a 429; it is never silently retried.
type RateLimitError struct {
	Channel string
	Target  string
	Limit   int
	Window  time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s already issued for %s/%s",
		e.Limit, e.Window, e.Channel, e.Target)
}

// VerificationError is the umbrella for all code and link validation
// failures. The message is human-readable; Reason gives callers a stable
// machine-readable cause.
type VerificationError struct {
	Reason  string
	Message string
}

func (e *VerificationError) Error() string {
	return e.Message
}

func newVerificationError(reason, message string) *VerificationError {
	return &VerificationError{Reason: reason, Message: message}
}

// RSADecryptionError is the umbrella for all decryption failures. It is
// deliberately coarse: the message never distinguishes bad padding from a
// wrong key or malformed input, to avoid oracle attacks. The cause is kept
// for server-side logs only.
type RSADecryptionError struct {
	cause error
}

func (e *RSADecryptionError) Error() string {
	return "failed to decrypt password"
}

// Unwrap exposes the cause for logging; it must not reach clients
func (e *RSADecryptionError) Unwrap() error {
	return e.cause
}
