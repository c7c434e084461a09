package models

import "github.com/google/uuid"

// IssueCodeRequest represents a request to issue a verification code
type IssueCodeRequest struct {
	Channel          string                 `json:"channel" binding:"required,oneof=email sms"`
	Target           string                 `json:"target" binding:"required"`
	Purpose          string                 `json:"purpose" binding:"required"`
	CodeLength       int                    `json:"code_length,omitempty"`
	ExpiresInMinutes int                    `json:"expires_in_minutes,omitempty"`
	MaxAttempts      int                    `json:"max_attempts,omitempty"`
	RateLimitPerHour int                    `json:"rate_limit_per_hour,omitempty"`
	Provider         string                 `json:"provider,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// IssueLinkRequest represents a request to issue a verification link
type IssueLinkRequest struct {
	Channel          string `json:"channel" binding:"required,oneof=email sms"`
	Target           string `json:"target" binding:"required"`
	Purpose          string `json:"purpose" binding:"required"`
	BaseURL          string `json:"base_url,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty"`
	RateLimitPerHour int    `json:"rate_limit_per_hour,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

// VerifyCodeRequest represents a request to verify a submitted code
type VerifyCodeRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email sms"`
	Target  string `json:"target" binding:"required"`
	Code    string `json:"code" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// VerifyLinkRequest represents a request to consume a verification link token
type VerifyLinkRequest struct {
	Token   string `json:"token" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// SendNotificationRequest represents a request to send a single notification
type SendNotificationRequest struct {
	Channel  string                 `json:"channel" binding:"required,oneof=email sms"`
	Target   string                 `json:"target" binding:"required"`
	Subject  string                 `json:"subject,omitempty"`
	Message  string                 `json:"message" binding:"required"`
	Provider string                 `json:"provider,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// CreateBroadcastRequest represents a request to create a broadcast campaign
type CreateBroadcastRequest struct {
	Name    string `json:"name" binding:"required"`
	Channel string `json:"channel" binding:"required,oneof=email sms"`
	Scope   string `json:"scope,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message" binding:"required"`
}

// DecryptPasswordRequest represents a request to decrypt a submitted password
type DecryptPasswordRequest struct {
	EncryptedPassword string     `json:"encrypted_password" binding:"required"`
	KeyID             *uuid.UUID `json:"key_id,omitempty"`
}
