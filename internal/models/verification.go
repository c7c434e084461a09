package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Verification methods
const (
	MethodCode = "code"
	MethodLink = "link"
)

// Verification request statuses
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationExpired  = "expired"
	VerificationFailed   = "failed"
)

// VerificationRequest represents a single verification challenge. Exactly one
// of Code or Token is set, matching Method. Rows are never deleted; they form
// the audit trail and the lookback window for rate limiting.
type VerificationRequest struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Channel     string         `gorm:"type:varchar(20);not null;index:idx_verification_lookup" json:"channel"`
	Method      string         `gorm:"type:varchar(20);not null;index:idx_verification_lookup" json:"method"`
	Target      string         `gorm:"type:varchar(255);not null;index:idx_verification_lookup" json:"target"` // email or phone
	Purpose     string         `gorm:"type:varchar(50);not null;index:idx_verification_lookup" json:"purpose"`
	Code        string         `gorm:"type:varchar(16)" json:"-"`
	Token       *string        `gorm:"type:varchar(64);uniqueIndex" json:"-"` // nil on code rows so the unique index never collides
	ExpiresAt   time.Time      `gorm:"not null;index" json:"expires_at"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
	MaxAttempts int            `gorm:"default:5" json:"max_attempts"`
	Status      string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	VerifiedAt  *time.Time     `json:"verified_at,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (VerificationRequest) TableName() string {
	return "verification_requests"
}

// BeforeCreate hook to generate UUID
func (v *VerificationRequest) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// IsExpired checks if the challenge has passed its deadline
func (v *VerificationRequest) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

// AttemptsExhausted checks if the attempt budget is spent
func (v *VerificationRequest) AttemptsExhausted() bool {
	return v.Attempts >= v.MaxAttempts
}

// IsPending checks if the request can still be acted on
func (v *VerificationRequest) IsPending() bool {
	return v.Status == VerificationPending
}

// AttemptsLeft returns the remaining attempt budget
func (v *VerificationRequest) AttemptsLeft() int {
	left := v.MaxAttempts - v.Attempts
	if left < 0 {
		return 0
	}
	return left
}
