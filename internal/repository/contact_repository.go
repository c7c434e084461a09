package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"notify-service/internal/models"
)

// ContactRepository handles database operations for contacts and opt-outs
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create creates a new contact
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// SubscribedTargets returns the address strings of every contact currently
// subscribed to the channel. This is the subscriber source the Broadcast
// Engine iterates.
func (r *ContactRepository) SubscribedTargets(ctx context.Context, channel string) ([]string, error) {
	var targets []string
	query := r.db.WithContext(ctx).Model(&models.Contact{})

	switch channel {
	case models.ChannelEmail:
		query = query.Where("email_subscribed = ? AND email <> ''", true).Pluck("email", &targets)
	case models.ChannelSMS:
		query = query.Where("sms_subscribed = ? AND phone <> ''", true).Pluck("phone", &targets)
	default:
		return nil, gorm.ErrRecordNotFound
	}

	return targets, query.Error
}

// Unsubscribe records an opt-out for a channel/target/scope. Idempotent: the
// unique constraint makes repeated opt-outs a no-op.
func (r *ContactRepository) Unsubscribe(ctx context.Context, channel, target, scope string) error {
	if scope == "" {
		scope = models.ScopeGeneral
	}
	record := models.Unsubscribe{
		Channel: channel,
		Target:  target,
		Scope:   scope,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}

// UnsubscribedSet returns the set of targets opted out of a channel and scope.
// A "general" opt-out matches every scope on the channel.
func (r *ContactRepository) UnsubscribedSet(ctx context.Context, channel, scope string) (map[string]struct{}, error) {
	var targets []string
	err := r.db.WithContext(ctx).Model(&models.Unsubscribe{}).
		Where("channel = ? AND scope IN ?", channel, []string{scope, models.ScopeGeneral}).
		Pluck("target", &targets).Error
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return set, nil
}

// IsUnsubscribed checks whether a single target has opted out of a channel/scope
func (r *ContactRepository) IsUnsubscribed(ctx context.Context, channel, target, scope string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Unsubscribe{}).
		Where("channel = ? AND target = ? AND scope IN ?",
			channel, target, []string{scope, models.ScopeGeneral}).
		Count(&count).Error
	return count > 0, err
}
