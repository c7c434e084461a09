package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-service/internal/models"
	"notify-service/internal/providers"
	"notify-service/internal/repository"
)

// stubProvider is a controllable provider for exercising delivery outcomes
type stubProvider struct {
	name        string
	channel     string
	failAll     bool
	failTargets map[string]bool
	sent        []string
}

func (p *stubProvider) Send(ctx context.Context, message *providers.Message) (*providers.SendResult, error) {
	if p.failAll || p.failTargets[message.To] {
		return &providers.SendResult{
			ProviderName: p.name,
			Success:      false,
			Error:        fmt.Errorf("delivery refused for %s", message.To),
		}, nil
	}
	p.sent = append(p.sent, message.To)
	return &providers.SendResult{ProviderName: p.name, Success: true}, nil
}

func (p *stubProvider) GetName() string { return p.name }

func (p *stubProvider) SupportsChannel() string { return p.channel }

func TestSendWritesLogAndSucceeds(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	log, err := f.notification.Send(ctx, SendParams{
		Channel: models.ChannelEmail,
		Target:  "alice@example.com",
		Subject: "Welcome",
		Message: "Hello Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, log.Status)
	assert.Equal(t, "console", log.Provider)
	assert.NotNil(t, log.SentAt)
}

func TestSendRecordsProviderFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.registry.Register(models.ChannelEmail, &stubProvider{name: "console", channel: models.ChannelEmail, failAll: true})

	log, err := f.notification.Send(ctx, SendParams{
		Channel: models.ChannelEmail,
		Target:  "bob@example.com",
		Message: "Hello Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, log.Status)
	assert.Contains(t, log.ErrorMessage, "delivery refused")
	assert.Nil(t, log.SentAt)
}

func TestUnknownProviderFallsBackToConsole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	log, err := f.notification.Send(ctx, SendParams{
		Channel:  models.ChannelEmail,
		Target:   "carol@example.com",
		Message:  "Hello Carol",
		Provider: "no-such-provider",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, log.Status)
	assert.Equal(t, "console", log.Provider)
}

func TestRetryFailedNotification(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stub := &stubProvider{name: "console", channel: models.ChannelEmail, failAll: true}
	f.registry.Register(models.ChannelEmail, stub)

	log, err := f.notification.Send(ctx, SendParams{
		Channel: models.ChannelEmail,
		Target:  "dave@example.com",
		Message: "Hello Dave",
	})
	require.NoError(t, err)
	require.Equal(t, models.NotificationFailed, log.Status)

	// Provider recovers; retry succeeds in place.
	stub.failAll = false
	retried, err := f.notification.Retry(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, log.ID, retried.ID)
	assert.Equal(t, models.NotificationSent, retried.Status)
	assert.Empty(t, retried.ErrorMessage)
}

func TestRetryRejectsSentNotification(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	log, err := f.notification.Send(ctx, SendParams{
		Channel: models.ChannelEmail,
		Target:  "erin@example.com",
		Message: "Hello Erin",
	})
	require.NoError(t, err)
	require.Equal(t, models.NotificationSent, log.Status)

	_, err = f.notification.Retry(ctx, log.ID)
	assert.Error(t, err)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.notification.Send(ctx, SendParams{
		Channel: models.ChannelEmail,
		Target:  "ok@example.com",
		Message: "fine",
	})
	require.NoError(t, err)

	f.registry.Register(models.ChannelEmail, &stubProvider{name: "console", channel: models.ChannelEmail, failAll: true})
	_, err = f.notification.Send(ctx, SendParams{
		Channel: models.ChannelEmail,
		Target:  "broken@example.com",
		Message: "nope",
	})
	require.NoError(t, err)

	failed, total, err := f.notification.List(ctx, repository.NotificationFilters{
		Status: models.NotificationFailed,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, failed, 1)
	assert.Equal(t, "broken@example.com", failed[0].Target)
}
