package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notify-service/internal/models"
	"notify-service/internal/providers"
	"notify-service/internal/repository"
)

// NotificationService runs single-target deliveries and keeps the durable log.
// Every delivery attempt leaves a NotificationLog row regardless of outcome.
type NotificationService struct {
	logs     *repository.NotificationRepository
	registry *providers.Registry
	logger   *logrus.Entry
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	logs *repository.NotificationRepository,
	registry *providers.Registry,
	logger *logrus.Logger,
) *NotificationService {
	return &NotificationService{
		logs:     logs,
		registry: registry,
		logger:   logger.WithField("component", "notification"),
	}
}

// SendParams describes one delivery
type SendParams struct {
	Channel        string
	Target         string
	Subject        string
	Message        string
	Provider       string
	Context        map[string]interface{}
	BroadcastID    *uuid.UUID
	VerificationID *uuid.UUID
	AccountID      *uuid.UUID
}

// Send performs one delivery. The log entry is written pending before the
// provider call so a crash mid-send leaves evidence, then finalized to sent
// or failed. Provider failures are recorded on the log, not returned; the
// error return is reserved for storage problems.
func (s *NotificationService) Send(ctx context.Context, p SendParams) (*models.NotificationLog, error) {
	log := &models.NotificationLog{
		Channel:        p.Channel,
		Target:         p.Target,
		Subject:        p.Subject,
		Message:        p.Message,
		Provider:       p.Provider,
		Status:         models.NotificationPending,
		BroadcastID:    p.BroadcastID,
		VerificationID: p.VerificationID,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create notification log: %w", err)
	}

	provider := s.registry.Resolve(p.Channel, p.Provider)
	result, err := provider.Send(ctx, &providers.Message{
		To:        p.Target,
		Subject:   p.Subject,
		Body:      p.Message,
		Context:   p.Context,
		AccountID: p.AccountID,
	})

	finalize(log, provider.GetName(), result, err)

	if updateErr := s.logs.Update(ctx, log); updateErr != nil {
		return nil, fmt.Errorf("failed to finalize notification log: %w", updateErr)
	}

	notificationsSent.WithLabelValues(p.Channel, log.Status).Inc()

	if log.Status == models.NotificationFailed {
		s.logger.WithFields(logrus.Fields{
			"channel":  p.Channel,
			"target":   p.Target,
			"provider": log.Provider,
			"error":    log.ErrorMessage,
		}).Warn("Notification delivery failed")
	}

	return log, nil
}

// Get retrieves a single log entry
func (s *NotificationService) Get(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	return s.logs.GetByID(ctx, id)
}

// List retrieves log entries matching the filters
func (s *NotificationService) List(ctx context.Context, filters repository.NotificationFilters) ([]models.NotificationLog, int64, error) {
	return s.logs.List(ctx, filters)
}

// Retry re-runs delivery for a failed log entry in place. Only failed entries
// are retryable; the entry keeps its identity and history rather than
// spawning a new row.
func (s *NotificationService) Retry(ctx context.Context, id uuid.UUID) (*models.NotificationLog, error) {
	log, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if log.Status != models.NotificationFailed {
		return nil, fmt.Errorf("notification %s is %s, only failed notifications can be retried", id, log.Status)
	}

	provider := s.registry.Resolve(log.Channel, log.Provider)
	result, sendErr := provider.Send(ctx, &providers.Message{
		To:      log.Target,
		Subject: log.Subject,
		Body:    log.Message,
	})

	finalize(log, provider.GetName(), result, sendErr)

	if err := s.logs.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to finalize notification log: %w", err)
	}

	notificationsSent.WithLabelValues(log.Channel, log.Status).Inc()
	return log, nil
}

// finalize stamps the delivery outcome onto the log entry
func finalize(log *models.NotificationLog, providerName string, result *providers.SendResult, err error) {
	switch {
	case err != nil:
		log.MarkFailed(providerName, err.Error())
	case !result.Success:
		errMsg := "delivery failed"
		if result.Error != nil {
			errMsg = result.Error.Error()
		}
		log.MarkFailed(result.ProviderName, errMsg)
	default:
		log.MarkSent(result.ProviderName)
	}
}
