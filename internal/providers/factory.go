package providers

import (
	"github.com/sirupsen/logrus"

	"notify-service/internal/config"
	"notify-service/internal/models"
	"notify-service/internal/repository"
)

// Registry resolves providers by channel and name. Resolution order follows
// the send request: explicit provider name, then the configured channel
// default, then console. Unrecognized names fall back to console so a
// misconfigured send is logged rather than lost.
type Registry struct {
	email        map[string]Provider
	sms          map[string]Provider
	defaultEmail string
	defaultSMS   string
	console      map[string]Provider
}

// NewRegistry builds the provider registry from configuration
func NewRegistry(cfg *config.Config, accounts *repository.EmailAccountRepository, logger *logrus.Logger) *Registry {
	r := &Registry{
		email:        make(map[string]Provider),
		sms:          make(map[string]Provider),
		defaultEmail: cfg.Delivery.DefaultEmailProvider,
		defaultSMS:   cfg.Delivery.DefaultSMSProvider,
		console: map[string]Provider{
			models.ChannelEmail: NewConsoleProvider(models.ChannelEmail, logger),
			models.ChannelSMS:   NewConsoleProvider(models.ChannelSMS, logger),
		},
	}

	r.email["console"] = r.console[models.ChannelEmail]
	r.sms["console"] = r.console[models.ChannelSMS]

	r.email["smtp"] = NewSMTPProvider(accounts, logger)

	if cfg.Delivery.SendGridAPIKey != "" {
		r.email["sendgrid"] = NewSendGridProvider(
			cfg.Delivery.SendGridAPIKey,
			cfg.Delivery.FromEmail,
			cfg.Delivery.FromName,
		)
	}

	if cfg.Delivery.TwilioAccountSID != "" {
		r.sms["twilio"] = NewTwilioProvider(
			cfg.Delivery.TwilioAccountSID,
			cfg.Delivery.TwilioAuthToken,
			cfg.Delivery.TwilioFrom,
		)
	}

	return r
}

// Resolve returns the provider for a channel and name. An empty name picks
// the channel default; anything unknown picks console.
func (r *Registry) Resolve(channel, name string) Provider {
	var pool map[string]Provider
	var fallbackName string

	switch channel {
	case models.ChannelEmail:
		pool = r.email
		fallbackName = r.defaultEmail
	case models.ChannelSMS:
		pool = r.sms
		fallbackName = r.defaultSMS
	default:
		return r.console[models.ChannelEmail]
	}

	if name == "" {
		name = fallbackName
	}
	if p, ok := pool[name]; ok {
		return p
	}
	return r.console[channel]
}

// Register installs or replaces a provider, used by tests to inject stubs
func (r *Registry) Register(channel string, p Provider) {
	switch channel {
	case models.ChannelEmail:
		r.email[p.GetName()] = p
	case models.ChannelSMS:
		r.sms[p.GetName()] = p
	}
}
