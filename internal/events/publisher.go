package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Stream and subject layout for notify events
const (
	streamName    = "NOTIFY_EVENTS"
	subjectPrefix = "notify"

	SubjectVerified           = "notify.verification.verified"
	SubjectVerificationFailed = "notify.verification.failed"
	SubjectBroadcastCompleted = "notify.broadcast.completed"
	SubjectKeyRotated         = "notify.keyring.rotated"
)

var (
	publisher     *Publisher
	publisherOnce sync.Once
	publisherMu   sync.RWMutex
)

// Publisher publishes domain events to NATS JetStream. Publishing is fire and
// forget from the caller's point of view; a NATS outage never fails the
// request that produced the event.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// Event is the common envelope for all published events
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// InitPublisher initializes the singleton NATS publisher. Publishing stays
// disabled when NATS_URL is unset.
func InitPublisher(logger *logrus.Logger) error {
	var initErr error
	publisherOnce.Do(func() {
		natsURL := os.Getenv("NATS_URL")
		if natsURL == "" {
			logger.Warn("NATS_URL not set, event publishing disabled")
			return
		}

		conn, err := nats.Connect(natsURL,
			nats.Name("notify-service"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.Timeout(10*time.Second),
			nats.RetryOnFailedConnect(true),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				if err != nil {
					logger.WithError(err).Warn("NATS disconnected")
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
			}),
		)
		if err != nil {
			initErr = fmt.Errorf("failed to connect to NATS: %w", err)
			return
		}

		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			initErr = fmt.Errorf("failed to create JetStream context: %w", err)
			return
		}

		if _, err := js.StreamInfo(streamName); err != nil {
			_, err = js.AddStream(&nats.StreamConfig{
				Name:     streamName,
				Subjects: []string{subjectPrefix + ".>"},
				Storage:  nats.FileStorage,
				MaxAge:   7 * 24 * time.Hour,
			})
			if err != nil {
				logger.WithError(err).Warn("Failed to ensure event stream")
			}
		}

		publisherMu.Lock()
		publisher = &Publisher{
			conn:   conn,
			js:     js,
			logger: logger.WithField("component", "events.publisher"),
		}
		publisherMu.Unlock()

		logger.WithField("url", natsURL).Info("NATS events publisher initialized")
	})
	return initErr
}

// GetPublisher returns the singleton publisher, nil when publishing is disabled
func GetPublisher() *Publisher {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return publisher
}

// publish marshals and publishes one event. Safe to call on a nil receiver.
func (p *Publisher) publish(ctx context.Context, subject string, data map[string]interface{}) {
	if p == nil {
		return
	}

	event := Event{
		ID:        uuid.New(),
		Type:      subject,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal event")
		return
	}

	if _, err := p.js.Publish(subject, payload, nats.Context(ctx)); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// PublishVerified announces a successful verification
func (p *Publisher) PublishVerified(ctx context.Context, id uuid.UUID, channel, target, purpose string) {
	p.publish(ctx, SubjectVerified, map[string]interface{}{
		"verification_id": id,
		"channel":         channel,
		"target":          target,
		"purpose":         purpose,
	})
}

// PublishVerificationFailed announces a terminally failed verification
func (p *Publisher) PublishVerificationFailed(ctx context.Context, id uuid.UUID, channel, target, purpose, reason string) {
	p.publish(ctx, SubjectVerificationFailed, map[string]interface{}{
		"verification_id": id,
		"channel":         channel,
		"target":          target,
		"purpose":         purpose,
		"reason":          reason,
	})
}

// PublishBroadcastCompleted announces the outcome of a broadcast send pass
func (p *Publisher) PublishBroadcastCompleted(ctx context.Context, id uuid.UUID, status string, sent, failed int) {
	p.publish(ctx, SubjectBroadcastCompleted, map[string]interface{}{
		"broadcast_id": id,
		"status":       status,
		"sent_count":   sent,
		"failed_count": failed,
	})
}

// PublishKeyRotated announces a keypair rotation
func (p *Publisher) PublishKeyRotated(ctx context.Context, keyID uuid.UUID) {
	p.publish(ctx, SubjectKeyRotated, map[string]interface{}{
		"key_id": keyID,
	})
}

// IsConnected reports whether the publisher holds a live connection
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close drains the connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Drain()
	}
}
