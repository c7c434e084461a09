package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
)

// VerificationRepository handles database operations for verification requests
type VerificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create creates a new verification request
func (r *VerificationRepository) Create(ctx context.Context, req *models.VerificationRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetByID retrieves a verification request by ID
func (r *VerificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// LatestByTarget retrieves the most recently created request for a
// channel/method/target/purpose combination. Older rows for the same
// combination are superseded at issuance and never selected here.
func (r *VerificationRepository) LatestByTarget(ctx context.Context, channel, method, target, purpose string) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("channel = ? AND method = ? AND target = ? AND purpose = ?",
			channel, method, target, purpose).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByToken retrieves a link request by its token. The token is the sole
// credential; no target is involved in the lookup.
func (r *VerificationRepository) GetByToken(ctx context.Context, token, purpose string) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("token = ? AND method = ? AND purpose = ?", token, models.MethodLink, purpose).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CountRecent counts requests created for a channel/target pair within the
// trailing window. The request log itself is the rate-limit state: limiting
// decays naturally as old rows age out of the lookback.
func (r *VerificationRepository) CountRecent(ctx context.Context, channel, target string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("channel = ? AND target = ? AND created_at >= ?", channel, target, since).
		Count(&count).Error
	return count, err
}

// IncrementAttempts atomically increments the attempt counter at the storage
// layer and returns the new value. Concurrent verifiers cannot lose updates.
func (r *VerificationRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	err := r.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
	if err != nil {
		return 0, err
	}

	var req models.VerificationRequest
	if err := r.db.WithContext(ctx).Select("attempts").Where("id = ?", id).First(&req).Error; err != nil {
		return 0, err
	}
	return req.Attempts, nil
}

// MarkStatusIfPending transitions a pending request to a terminal status.
// Transitions are monotone: a request already verified, expired or failed is
// left untouched.
func (r *VerificationRepository) MarkStatusIfPending(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("id = ? AND status = ?", id, models.VerificationPending).
		Update("status", status).Error
}

// MarkVerified transitions a pending request to verified and stamps verified_at
func (r *VerificationRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("id = ? AND status = ?", id, models.VerificationPending).
		Updates(map[string]interface{}{
			"status":      models.VerificationVerified,
			"verified_at": now,
		}).Error
}

// SupersedePending expires all pending requests for a combination except the
// given one. Called at issuance so no unreachable pending rows are left behind.
func (r *VerificationRepository) SupersedePending(ctx context.Context, channel, method, target, purpose string, keep uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.VerificationRequest{}).
		Where("channel = ? AND method = ? AND target = ? AND purpose = ? AND status = ? AND id <> ?",
			channel, method, target, purpose, models.VerificationPending, keep).
		Update("status", models.VerificationExpired).Error
}

// DeleteExpired soft-deletes long-expired unverified requests (cleanup)
func (r *VerificationRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ? AND status <> ?", time.Now().Add(-olderThan), models.VerificationVerified).
		Delete(&models.VerificationRequest{}).Error
}
