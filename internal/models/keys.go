package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthKeypairName is the logical name of the keypair used for client-side
// password encryption.
const AuthKeypairName = "auth-encryption"

// RSAKeypair holds one generation of asymmetric key material. At most one row
// per name is active; rotation inserts a fresh row and retires the previous
// one, so ciphertext produced just before a rotation stays decryptable by
// key_id for a grace period.
type RSAKeypair struct {
	KeyID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"key_id"`
	Name          string     `gorm:"type:varchar(100);not null;index" json:"name"`
	PublicKeyPEM  string     `gorm:"type:text;not null" json:"public_key_pem"`
	PrivateKeyPEM string     `gorm:"type:text;not null" json:"-"`
	IsActive      bool       `gorm:"default:true;index" json:"is_active"`
	RotatedAt     *time.Time `json:"rotated_at,omitempty"`
	RetiredAt     *time.Time `json:"retired_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (RSAKeypair) TableName() string {
	return "rsa_keypairs"
}

// BeforeCreate hook to generate UUID
func (k *RSAKeypair) BeforeCreate(tx *gorm.DB) error {
	if k.KeyID == uuid.Nil {
		k.KeyID = uuid.New()
	}
	return nil
}

// Age returns how long this generation has been current, measured from the
// last rotation or, failing that, creation.
func (k *RSAKeypair) Age() time.Duration {
	since := k.CreatedAt
	if k.RotatedAt != nil {
		since = *k.RotatedAt
	}
	return time.Since(since)
}
