package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
)

// NotificationRepository handles database operations for notification logs
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification log entry
func (r *NotificationRepository) Create(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Update persists the final delivery outcome of a log entry
func (r *NotificationRepository) Update(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// GetByID retrieves a notification log by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	var log models.NotificationLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// NotificationFilters narrows List results
type NotificationFilters struct {
	Channel     string
	Status      string
	Target      string
	BroadcastID *uuid.UUID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// List retrieves notification logs matching the filters, newest first
func (r *NotificationRepository) List(ctx context.Context, filters NotificationFilters) ([]models.NotificationLog, int64, error) {
	var logs []models.NotificationLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.NotificationLog{})

	if filters.Channel != "" {
		query = query.Where("channel = ?", filters.Channel)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Target != "" {
		query = query.Where("target = ?", filters.Target)
	}
	if filters.BroadcastID != nil {
		query = query.Where("broadcast_id = ?", filters.BroadcastID)
	}
	if filters.FromDate != nil {
		query = query.Where("created_at >= ?", filters.FromDate)
	}
	if filters.ToDate != nil {
		query = query.Where("created_at <= ?", filters.ToDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	err := query.Order("created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&logs).Error

	return logs, total, err
}
