package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"notify-service/internal/config"
	"notify-service/internal/events"
	"notify-service/internal/models"
	"notify-service/internal/repository"
	"notify-service/internal/templates"
	"notify-service/pkg/otp"
)

// rateLimitWindow is the rolling lookback over the request log itself. There
// is no separate counter state: limiting decays as old requests age out.
const rateLimitWindow = time.Hour

// VerificationService governs issuance and validation of verification codes
// and links.
type VerificationService struct {
	cfg      *config.Config
	requests *repository.VerificationRepository
	notifier *NotificationService
	logger   *logrus.Entry
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	cfg *config.Config,
	requests *repository.VerificationRepository,
	notifier *NotificationService,
	logger *logrus.Logger,
) *VerificationService {
	return &VerificationService{
		cfg:      cfg,
		requests: requests,
		notifier: notifier,
		logger:   logger.WithField("component", "verification"),
	}
}

// IssueParams are the knobs for issuing a challenge. Zero values fall back to
// the configured defaults.
type IssueParams struct {
	Channel          string
	Target           string
	Purpose          string
	CodeLength       int
	ExpiresInMinutes int
	MaxAttempts      int
	RateLimitPerHour int
	Provider         string
	BaseURL          string // link method only
}

func (s *VerificationService) applyDefaults(p *IssueParams, method string) {
	if p.CodeLength == 0 {
		p.CodeLength = s.cfg.Verification.CodeLength
	}
	if p.ExpiresInMinutes == 0 {
		if method == models.MethodLink {
			p.ExpiresInMinutes = s.cfg.Verification.LinkExpiryMinutes
		} else {
			p.ExpiresInMinutes = s.cfg.Verification.ExpiryMinutes
		}
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = s.cfg.Verification.MaxAttempts
	}
	if p.RateLimitPerHour == 0 {
		p.RateLimitPerHour = s.cfg.Verification.RateLimitPerHour
	}
	if p.BaseURL == "" {
		p.BaseURL = s.cfg.Verification.LinkBaseURL
	}
}

// checkRateLimit counts prior requests for the exact channel/target pair in
// the trailing window. No side effects on failure: a blocked issuance creates
// no partial record.
func (s *VerificationService) checkRateLimit(ctx context.Context, channel, target string, limit int) error {
	since := time.Now().Add(-rateLimitWindow)
	count, err := s.requests.CountRecent(ctx, channel, target, since)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count >= int64(limit) {
		rateLimitsHit.WithLabelValues(channel).Inc()
		return &RateLimitError{
			Channel: channel,
			Target:  target,
			Limit:   limit,
			Window:  rateLimitWindow,
		}
	}
	return nil
}

// IssueCode issues a numeric verification code and sends it over the channel.
// The returned bool reports the delivery outcome separately from issuance:
// the challenge exists and is verifiable even when the send failed, so
// callers must not assume issuance implies delivery.
func (s *VerificationService) IssueCode(ctx context.Context, p IssueParams) (*models.VerificationRequest, bool, error) {
	s.applyDefaults(&p, models.MethodCode)

	if err := s.checkRateLimit(ctx, p.Channel, p.Target, p.RateLimitPerHour); err != nil {
		return nil, false, err
	}

	code, err := otp.NewGenerator(p.CodeLength).Generate()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate code: %w", err)
	}

	req := &models.VerificationRequest{
		Channel:     p.Channel,
		Method:      models.MethodCode,
		Target:      p.Target,
		Purpose:     p.Purpose,
		Code:        code,
		ExpiresAt:   time.Now().Add(time.Duration(p.ExpiresInMinutes) * time.Minute),
		MaxAttempts: p.MaxAttempts,
		Status:      models.VerificationPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, false, fmt.Errorf("failed to save verification request: %w", err)
	}

	// Older pending challenges for this combination are now unreachable;
	// expire them explicitly rather than leaving orphaned pending rows.
	if err := s.requests.SupersedePending(ctx, p.Channel, models.MethodCode, p.Target, p.Purpose, req.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to supersede older pending requests")
	}

	codesIssued.WithLabelValues(p.Channel, models.MethodCode).Inc()

	delivered := s.deliver(ctx, req, p.Provider,
		"Your verification code",
		templates.VerificationCodeMessage(code, p.ExpiresInMinutes))

	return req, delivered, nil
}

// IssueLink issues an unguessable verification link. The token carries 128
// bits of randomness and is the sole credential; the link is base_url + "/" +
// token when a base URL is configured, else the bare token.
func (s *VerificationService) IssueLink(ctx context.Context, p IssueParams) (*models.VerificationRequest, string, bool, error) {
	s.applyDefaults(&p, models.MethodLink)

	if err := s.checkRateLimit(ctx, p.Channel, p.Target, p.RateLimitPerHour); err != nil {
		return nil, "", false, err
	}

	token, err := otp.GenerateToken()
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to generate token: %w", err)
	}

	req := &models.VerificationRequest{
		Channel:     p.Channel,
		Method:      models.MethodLink,
		Target:      p.Target,
		Purpose:     p.Purpose,
		Token:       &token,
		ExpiresAt:   time.Now().Add(time.Duration(p.ExpiresInMinutes) * time.Minute),
		MaxAttempts: p.MaxAttempts,
		Status:      models.VerificationPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, "", false, fmt.Errorf("failed to save verification request: %w", err)
	}

	if err := s.requests.SupersedePending(ctx, p.Channel, models.MethodLink, p.Target, p.Purpose, req.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to supersede older pending requests")
	}

	link := token
	if p.BaseURL != "" {
		link = p.BaseURL + "/" + token
	}

	codesIssued.WithLabelValues(p.Channel, models.MethodLink).Inc()

	delivered := s.deliver(ctx, req, p.Provider,
		"Your verification link",
		templates.VerificationLinkMessage(link, p.ExpiresInMinutes))

	return req, link, delivered, nil
}

// deliver sends the challenge through the notification pipeline. Failures are
// logged and reported to the caller through the delivered flag but never fail
// issuance.
func (s *VerificationService) deliver(ctx context.Context, req *models.VerificationRequest, provider, subject, body string) bool {
	log, err := s.notifier.Send(ctx, SendParams{
		Channel:        req.Channel,
		Target:         req.Target,
		Subject:        subject,
		Message:        body,
		Provider:       provider,
		VerificationID: &req.ID,
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"channel": req.Channel,
			"target":  req.Target,
		}).Warn("Challenge delivery errored")
		return false
	}
	return log.Status == models.NotificationSent
}

// VerifyCode validates a submitted code against the most recent matching
// challenge. Attempt increments persist even when verification fails; that is
// the anti-brute-force property.
func (s *VerificationService) VerifyCode(ctx context.Context, channel, target, submitted, purpose string) error {
	req, err := s.requests.LatestByTarget(ctx, channel, models.MethodCode, target, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verificationAttempts.WithLabelValues(models.MethodCode, "failure").Inc()
			return newVerificationError(ReasonNotFound, "no verification request found")
		}
		return fmt.Errorf("failed to load verification request: %w", err)
	}

	if err := s.validate(ctx, req); err != nil {
		verificationAttempts.WithLabelValues(models.MethodCode, "failure").Inc()
		return err
	}

	if otp.NormalizeCode(submitted) != req.Code {
		attempts, incErr := s.requests.IncrementAttempts(ctx, req.ID)
		if incErr != nil {
			return fmt.Errorf("failed to record attempt: %w", incErr)
		}
		verificationAttempts.WithLabelValues(models.MethodCode, "failure").Inc()
		if attempts >= req.MaxAttempts {
			if markErr := s.requests.MarkStatusIfPending(ctx, req.ID, models.VerificationFailed); markErr != nil {
				s.logger.WithError(markErr).Warn("Failed to mark request failed")
			}
			events.GetPublisher().PublishVerificationFailed(ctx, req.ID, req.Channel, req.Target, req.Purpose, ReasonMaxAttempts)
			return newVerificationError(ReasonMaxAttempts, "maximum verification attempts exceeded")
		}
		return newVerificationError(ReasonMismatch, "invalid verification code")
	}

	if err := s.requests.MarkVerified(ctx, req.ID); err != nil {
		return fmt.Errorf("failed to mark request verified: %w", err)
	}

	verificationAttempts.WithLabelValues(models.MethodCode, "success").Inc()
	events.GetPublisher().PublishVerified(ctx, req.ID, req.Channel, req.Target, req.Purpose)
	return nil
}

// VerifyLink consumes a verification link token. Idempotent: a token that was
// already verified succeeds again without re-stamping verified_at.
func (s *VerificationService) VerifyLink(ctx context.Context, token, purpose string) error {
	req, err := s.requests.GetByToken(ctx, token, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verificationAttempts.WithLabelValues(models.MethodLink, "failure").Inc()
			return newVerificationError(ReasonNotFound, "invalid verification link")
		}
		return fmt.Errorf("failed to load verification request: %w", err)
	}

	if req.Status == models.VerificationVerified {
		return nil
	}

	if err := s.validate(ctx, req); err != nil {
		verificationAttempts.WithLabelValues(models.MethodLink, "failure").Inc()
		return err
	}

	if err := s.requests.MarkVerified(ctx, req.ID); err != nil {
		return fmt.Errorf("failed to mark request verified: %w", err)
	}

	verificationAttempts.WithLabelValues(models.MethodLink, "success").Inc()
	events.GetPublisher().PublishVerified(ctx, req.ID, req.Channel, req.Target, req.Purpose)
	return nil
}

// validate runs the common pre-checks: terminal statuses, lazy expiry and the
// attempt budget. Expiry is evaluated here against the clock, not by a timer;
// an expired-but-never-checked request stays pending in storage until someone
// asks.
func (s *VerificationService) validate(ctx context.Context, req *models.VerificationRequest) error {
	switch req.Status {
	case models.VerificationExpired:
		return newVerificationError(ReasonExpired, "verification request has expired")
	case models.VerificationFailed:
		return newVerificationError(ReasonMaxAttempts, "maximum verification attempts exceeded")
	case models.VerificationVerified:
		return newVerificationError(ReasonConsumed, "verification request already consumed")
	}

	if req.IsExpired() {
		if err := s.requests.MarkStatusIfPending(ctx, req.ID, models.VerificationExpired); err != nil {
			s.logger.WithError(err).Warn("Failed to mark request expired")
		}
		return newVerificationError(ReasonExpired, "verification request has expired")
	}

	if req.AttemptsExhausted() {
		if err := s.requests.MarkStatusIfPending(ctx, req.ID, models.VerificationFailed); err != nil {
			s.logger.WithError(err).Warn("Failed to mark request failed")
		}
		return newVerificationError(ReasonMaxAttempts, "maximum verification attempts exceeded")
	}

	return nil
}

// Status reports the state of the newest challenge for a combination
func (s *VerificationService) Status(ctx context.Context, channel, method, target, purpose string) (*models.VerificationStatusResponse, error) {
	req, err := s.requests.LatestByTarget(ctx, channel, method, target, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newVerificationError(ReasonNotFound, "no verification request found")
		}
		return nil, fmt.Errorf("failed to load verification request: %w", err)
	}

	return &models.VerificationStatusResponse{
		Channel:      req.Channel,
		Target:       req.Target,
		Purpose:      req.Purpose,
		Status:       req.Status,
		ExpiresAt:    &req.ExpiresAt,
		VerifiedAt:   req.VerifiedAt,
		AttemptsLeft: req.AttemptsLeft(),
	}, nil
}
