package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
)

// KeypairRepository handles database operations for RSA keypairs
type KeypairRepository struct {
	db *gorm.DB
}

// NewKeypairRepository creates a new keypair repository
func NewKeypairRepository(db *gorm.DB) *KeypairRepository {
	return &KeypairRepository{db: db}
}

// Create creates a new keypair row
func (r *KeypairRepository) Create(ctx context.Context, keypair *models.RSAKeypair) error {
	return r.db.WithContext(ctx).Create(keypair).Error
}

// ActiveByName retrieves the current active keypair for a logical name
func (r *KeypairRepository) ActiveByName(ctx context.Context, name string) (*models.RSAKeypair, error) {
	var keypair models.RSAKeypair
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		Order("created_at DESC").
		First(&keypair).Error
	if err != nil {
		return nil, err
	}
	return &keypair, nil
}

// GetByKeyID retrieves a keypair by its identifier, active or retired
func (r *KeypairRepository) GetByKeyID(ctx context.Context, keyID uuid.UUID) (*models.RSAKeypair, error) {
	var keypair models.RSAKeypair
	err := r.db.WithContext(ctx).Where("key_id = ?", keyID).First(&keypair).Error
	if err != nil {
		return nil, err
	}
	return &keypair, nil
}

// ReplaceActive atomically retires the current active keypair for a name and
// installs the replacement. The retired row keeps its private key so
// in-flight ciphertext stays decryptable by key_id during the grace period.
func (r *KeypairRepository) ReplaceActive(ctx context.Context, name string, replacement *models.RSAKeypair) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.RSAKeypair{}).
			Where("name = ? AND is_active = ?", name, true).
			Updates(map[string]interface{}{
				"is_active":  false,
				"retired_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Create(replacement).Error
	})
}

// Deactivate retires a keypair outside the rotation schedule, used when
// decommissioning a key.
func (r *KeypairRepository) Deactivate(ctx context.Context, keyID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.RSAKeypair{}).
		Where("key_id = ?", keyID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"retired_at": now,
		}).Error
}
