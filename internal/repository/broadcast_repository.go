package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
)

// BroadcastRepository handles database operations for broadcast campaigns
type BroadcastRepository struct {
	db *gorm.DB
}

// NewBroadcastRepository creates a new broadcast repository
func NewBroadcastRepository(db *gorm.DB) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

// Create creates a new broadcast campaign
func (r *BroadcastRepository) Create(ctx context.Context, broadcast *models.BroadcastMessage) error {
	return r.db.WithContext(ctx).Create(broadcast).Error
}

// GetByID retrieves a broadcast by ID
func (r *BroadcastRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BroadcastMessage, error) {
	var broadcast models.BroadcastMessage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&broadcast).Error
	if err != nil {
		return nil, err
	}
	return &broadcast, nil
}

// List retrieves broadcasts, newest first
func (r *BroadcastRepository) List(ctx context.Context, limit, offset int) ([]models.BroadcastMessage, int64, error) {
	var broadcasts []models.BroadcastMessage
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.BroadcastMessage{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&broadcasts).Error

	return broadcasts, total, err
}

// ClaimForSending transitions a sendable broadcast to the sending state and
// re-zeroes its counters in one guarded update. The guard on the current
// status makes the send pass non-reentrant: a second concurrent caller
// matches zero rows and claims nothing.
func (r *BroadcastRepository) ClaimForSending(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.BroadcastMessage{}).
		Where("id = ? AND status IN ?", id,
			[]string{models.BroadcastDraft, models.BroadcastFailed, models.BroadcastPartial}).
		Updates(map[string]interface{}{
			"status":           models.BroadcastSending,
			"total_recipients": 0,
			"sent_count":       0,
			"failed_count":     0,
			"last_error":       "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordRecipient checkpoints one recipient outcome with atomic counter
// increments, so a crash mid-broadcast loses no delivery accounting.
func (r *BroadcastRepository) RecordRecipient(ctx context.Context, id uuid.UUID, sent bool) error {
	updates := map[string]interface{}{
		"total_recipients": gorm.Expr("total_recipients + 1"),
	}
	if sent {
		updates["sent_count"] = gorm.Expr("sent_count + 1")
	} else {
		updates["failed_count"] = gorm.Expr("failed_count + 1")
	}
	return r.db.WithContext(ctx).Model(&models.BroadcastMessage{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Finalize stamps the terminal status of a send pass
func (r *BroadcastRepository) Finalize(ctx context.Context, id uuid.UUID, status, lastError string, sentAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}
	if sentAt != nil {
		updates["sent_at"] = sentAt
	}
	return r.db.WithContext(ctx).Model(&models.BroadcastMessage{}).
		Where("id = ?", id).
		Updates(updates).Error
}
