package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notify-service/internal/models"
)

// EmailAccountRepository handles database operations for SMTP sending accounts
type EmailAccountRepository struct {
	db *gorm.DB
}

// NewEmailAccountRepository creates a new email account repository
func NewEmailAccountRepository(db *gorm.DB) *EmailAccountRepository {
	return &EmailAccountRepository{db: db}
}

// Create creates a new sending account
func (r *EmailAccountRepository) Create(ctx context.Context, account *models.EmailAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID retrieves a sending account by ID
func (r *EmailAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailAccount, error) {
	var account models.EmailAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DefaultActive retrieves the default active sending account, the fallback
// when a send references no explicit account.
func (r *EmailAccountRepository) DefaultActive(ctx context.Context) (*models.EmailAccount, error) {
	var account models.EmailAccount
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// MarkUsed stamps the account with the outcome of its last send for
// operational telemetry.
func (r *EmailAccountRepository) MarkUsed(ctx context.Context, account *models.EmailAccount, sendErr error) error {
	account.MarkUsed(sendErr)
	return r.db.WithContext(ctx).Model(account).
		Select("last_used_at", "last_error").
		Updates(account).Error
}
