package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notify-service/internal/events"
	"notify-service/internal/models"
	"notify-service/internal/repository"
)

// BroadcastService fans one campaign out to every subscribed, not-opted-out
// target on its channel. Per-recipient outcomes are checkpointed to storage
// as they happen, so the counters on the campaign row are trustworthy even
// after a crash mid-pass.
type BroadcastService struct {
	broadcasts *repository.BroadcastRepository
	contacts   *repository.ContactRepository
	notifier   *NotificationService
	logger     *logrus.Entry
}

// NewBroadcastService creates a new broadcast service
func NewBroadcastService(
	broadcasts *repository.BroadcastRepository,
	contacts *repository.ContactRepository,
	notifier *NotificationService,
	logger *logrus.Logger,
) *BroadcastService {
	return &BroadcastService{
		broadcasts: broadcasts,
		contacts:   contacts,
		notifier:   notifier,
		logger:     logger.WithField("component", "broadcast"),
	}
}

// Create saves a new campaign in the draft state
func (s *BroadcastService) Create(ctx context.Context, p models.CreateBroadcastRequest) (*models.BroadcastMessage, error) {
	scope := p.Scope
	if scope == "" {
		scope = models.ScopeGeneral
	}
	broadcast := &models.BroadcastMessage{
		Name:    p.Name,
		Channel: p.Channel,
		Scope:   scope,
		Subject: p.Subject,
		Message: p.Message,
		Status:  models.BroadcastDraft,
	}
	if err := s.broadcasts.Create(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}
	return broadcast, nil
}

// Get retrieves a campaign
func (s *BroadcastService) Get(ctx context.Context, id uuid.UUID) (*models.BroadcastMessage, error) {
	return s.broadcasts.GetByID(ctx, id)
}

// List retrieves campaigns, newest first
func (s *BroadcastService) List(ctx context.Context, limit, offset int) ([]models.BroadcastMessage, int64, error) {
	return s.broadcasts.List(ctx, limit, offset)
}

// Send runs one fan-out pass over the campaign audience. One failed recipient
// never aborts the pass; each failure is accounted and the loop continues.
// The terminal status reflects the tally: sent when everyone got it, partial
// on a mix, failed when nobody did. A campaign already sending is left alone
// and returned as-is.
func (s *BroadcastService) Send(ctx context.Context, id uuid.UUID) (*models.BroadcastMessage, error) {
	claimed, err := s.broadcasts.ClaimForSending(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to claim broadcast: %w", err)
	}
	if !claimed {
		// Either already sending or already sent; report current state.
		return s.broadcasts.GetByID(ctx, id)
	}

	broadcast, err := s.broadcasts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load broadcast: %w", err)
	}

	recipients, err := s.eligibleRecipients(ctx, broadcast.Channel, broadcast.Scope)
	if err != nil {
		if finErr := s.broadcasts.Finalize(ctx, id, models.BroadcastFailed, err.Error(), nil); finErr != nil {
			s.logger.WithError(finErr).Error("Failed to finalize broadcast")
		}
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	if len(recipients) == 0 {
		reason := "no eligible recipients"
		if err := s.broadcasts.Finalize(ctx, id, models.BroadcastFailed, reason, nil); err != nil {
			s.logger.WithError(err).Error("Failed to finalize broadcast")
		}
		broadcastsCompleted.WithLabelValues(models.BroadcastFailed).Inc()
		return nil, fmt.Errorf("broadcast %s: %s", id, reason)
	}

	var sent, failed int
	var lastError string
	for _, target := range recipients {
		log, sendErr := s.notifier.Send(ctx, SendParams{
			Channel:     broadcast.Channel,
			Target:      target,
			Subject:     broadcast.Subject,
			Message:     broadcast.Message,
			BroadcastID: &broadcast.ID,
		})

		ok := sendErr == nil && log.Status == models.NotificationSent
		if ok {
			sent++
		} else {
			failed++
			if sendErr != nil {
				lastError = sendErr.Error()
			} else {
				lastError = log.ErrorMessage
			}
		}

		if recErr := s.broadcasts.RecordRecipient(ctx, id, ok); recErr != nil {
			s.logger.WithError(recErr).Error("Failed to checkpoint recipient outcome")
		}
	}

	status := models.BroadcastSent
	switch {
	case sent == 0:
		status = models.BroadcastFailed
	case failed > 0:
		status = models.BroadcastPartial
	}

	// sent_at records when the fan-out pass completed, whatever the outcome.
	// Only the zero-recipient abort above leaves it unset.
	now := time.Now()
	if err := s.broadcasts.Finalize(ctx, id, status, lastError, &now); err != nil {
		return nil, fmt.Errorf("failed to finalize broadcast: %w", err)
	}

	broadcastsCompleted.WithLabelValues(status).Inc()
	events.GetPublisher().PublishBroadcastCompleted(ctx, id, status, sent, failed)
	s.logger.WithFields(logrus.Fields{
		"broadcast_id": id,
		"status":       status,
		"sent":         sent,
		"failed":       failed,
		"total":        len(recipients),
	}).Info("Broadcast pass finished")

	return s.broadcasts.GetByID(ctx, id)
}

// eligibleRecipients is the audience query: subscribed targets minus the
// opt-out set for the campaign scope. A "general" opt-out excludes a target
// from every scope on the channel.
func (s *BroadcastService) eligibleRecipients(ctx context.Context, channel, scope string) ([]string, error) {
	targets, err := s.contacts.SubscribedTargets(ctx, channel)
	if err != nil {
		return nil, err
	}

	optedOut, err := s.contacts.UnsubscribedSet(ctx, channel, scope)
	if err != nil {
		return nil, err
	}

	eligible := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, skip := optedOut[t]; skip {
			continue
		}
		eligible = append(eligible, t)
	}
	return eligible, nil
}

// Unsubscribe records an opt-out for a channel/target/scope
func (s *BroadcastService) Unsubscribe(ctx context.Context, channel, target, scope string) error {
	return s.contacts.Unsubscribe(ctx, channel, target, scope)
}
