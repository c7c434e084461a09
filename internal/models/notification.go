package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification log statuses
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Broadcast statuses
const (
	BroadcastDraft   = "draft"
	BroadcastSending = "sending"
	BroadcastSent    = "sent"
	BroadcastPartial = "partial"
	BroadcastFailed  = "failed"
)

// ScopeGeneral opts a target out of every scope on a channel
const ScopeGeneral = "general"

// NotificationLog is the durable record of one delivery attempt. It is created
// pending in the same pass as the send and finalized to sent or failed after
// the provider call returns; it is never left pending.
type NotificationLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Channel        string         `gorm:"type:varchar(20);not null;index" json:"channel"`
	Target         string         `gorm:"type:varchar(255);not null;index" json:"target"`
	Subject        string         `gorm:"type:varchar(500)" json:"subject,omitempty"`
	Message        string         `gorm:"type:text" json:"message"`
	Provider       string         `gorm:"type:varchar(50)" json:"provider"`
	Status         string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message,omitempty"`
	BroadcastID    *uuid.UUID     `gorm:"type:uuid;index" json:"broadcast_id,omitempty"`
	VerificationID *uuid.UUID     `gorm:"type:uuid;index" json:"verification_id,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (NotificationLog) TableName() string {
	return "notification_logs"
}

// BeforeCreate hook to generate UUID
func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// MarkSent finalizes the log as delivered
func (n *NotificationLog) MarkSent(provider string) {
	now := time.Now()
	n.Status = NotificationSent
	n.Provider = provider
	n.SentAt = &now
	n.ErrorMessage = ""
}

// MarkFailed finalizes the log as failed
func (n *NotificationLog) MarkFailed(provider, errMsg string) {
	n.Status = NotificationFailed
	n.Provider = provider
	n.ErrorMessage = errMsg
}

// BroadcastMessage is one fan-out campaign over a channel and audience scope.
type BroadcastMessage struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Channel         string         `gorm:"type:varchar(20);not null" json:"channel"`
	Scope           string         `gorm:"type:varchar(50);not null;default:'general'" json:"scope"`
	Subject         string         `gorm:"type:varchar(500)" json:"subject,omitempty"`
	Message         string         `gorm:"type:text;not null" json:"message"`
	Status          string         `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	TotalRecipients int            `gorm:"default:0" json:"total_recipients"`
	SentCount       int            `gorm:"default:0" json:"sent_count"`
	FailedCount     int            `gorm:"default:0" json:"failed_count"`
	LastError       string         `gorm:"type:text" json:"last_error,omitempty"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (BroadcastMessage) TableName() string {
	return "broadcast_messages"
}

// BeforeCreate hook to generate UUID
func (b *BroadcastMessage) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsSendable reports whether a send pass may start. Sending is not reentrant:
// a broadcast already in the sending state cannot be started again, while a
// finished one (sent, partial or failed) can be retried with counters re-zeroed.
func (b *BroadcastMessage) IsSendable() bool {
	switch b.Status {
	case BroadcastDraft, BroadcastFailed, BroadcastPartial:
		return true
	default:
		return false
	}
}

// Unsubscribe is an opt-out record scoping a target out of a channel and scope.
// A record with scope "general" matches every scope on the channel.
type Unsubscribe struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Channel   string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_unsubscribe_unique" json:"channel"`
	Target    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_unsubscribe_unique" json:"target"`
	Scope     string    `gorm:"type:varchar(50);not null;default:'general';uniqueIndex:idx_unsubscribe_unique" json:"scope"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Unsubscribe) TableName() string {
	return "unsubscribes"
}

// BeforeCreate hook to generate UUID
func (u *Unsubscribe) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Contact is a subscriber the Broadcast Engine fans out to.
type Contact struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email           string         `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Phone           string         `gorm:"type:varchar(50);index" json:"phone,omitempty"`
	EmailSubscribed bool           `gorm:"default:true" json:"email_subscribed"`
	SMSSubscribed   bool           `gorm:"default:true" json:"sms_subscribed"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate hook to generate UUID
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// EmailAccount is a sending credential for the SMTP provider. The default
// active account is the fallback when no explicit account is referenced.
type EmailAccount struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Address    string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"address"`
	Secret     string     `gorm:"type:varchar(255);not null" json:"-"`
	Host       string     `gorm:"type:varchar(255);not null" json:"host"`
	Port       int        `gorm:"default:587" json:"port"`
	UseTLS     bool       `gorm:"default:true" json:"use_tls"`
	IsActive   bool       `gorm:"default:true;index" json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	LastError  string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (EmailAccount) TableName() string {
	return "email_accounts"
}

// BeforeCreate hook to generate UUID
func (a *EmailAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// MarkUsed stamps the account with the outcome of its last send
func (a *EmailAccount) MarkUsed(sendErr error) {
	now := time.Now()
	a.LastUsedAt = &now
	if sendErr != nil {
		a.LastError = sendErr.Error()
	} else {
		a.LastError = ""
	}
}
