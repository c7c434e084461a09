package providers

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ConsoleProvider writes messages to the log instead of delivering them. It
// always succeeds, which makes it the development default and the safe
// fallback for unrecognized provider names.
type ConsoleProvider struct {
	channel string
	logger  *logrus.Entry
}

// NewConsoleProvider creates a console provider for a channel
func NewConsoleProvider(channel string, logger *logrus.Logger) *ConsoleProvider {
	return &ConsoleProvider{
		channel: channel,
		logger:  logger.WithField("provider", "console"),
	}
}

// Send logs the message and reports success
func (p *ConsoleProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	p.logger.WithFields(logrus.Fields{
		"channel": p.channel,
		"to":      message.To,
		"subject": message.Subject,
	}).Info(message.Body)

	return &SendResult{
		ProviderName: p.GetName(),
		Success:      true,
	}, nil
}

// GetName returns the provider name
func (p *ConsoleProvider) GetName() string {
	return "console"
}

// SupportsChannel returns the supported channel
func (p *ConsoleProvider) SupportsChannel() string {
	return p.channel
}
