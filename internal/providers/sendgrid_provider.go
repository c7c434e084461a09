package providers

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"notify-service/internal/models"
	"notify-service/internal/templates"
)

// SendGridProvider delivers email through the SendGrid API
type SendGridProvider struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridProvider creates a new SendGrid email provider
func NewSendGridProvider(apiKey, from, fromName string) *SendGridProvider {
	return &SendGridProvider{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}
}

// Send sends an email via SendGrid
func (p *SendGridProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	renderCtx := templates.BuildContext(message.To, message.Context)

	subject, err := templates.Render(message.Subject, renderCtx)
	if err != nil {
		return &SendResult{ProviderName: p.GetName(), Success: false, Error: err}, nil
	}
	body, err := templates.Render(message.Body, renderCtx)
	if err != nil {
		return &SendResult{ProviderName: p.GetName(), Success: false, Error: err}, nil
	}

	from := mail.NewEmail(p.fromName, p.from)
	to := mail.NewEmail("", message.To)
	html := templates.WrapLayout(subject, body)
	m := mail.NewSingleEmail(from, subject, to, body, html)

	// Disable click and open tracking for transactional mail
	trackingSettings := mail.NewTrackingSettings()
	clickTracking := mail.NewClickTrackingSetting()
	clickTracking.SetEnable(false)
	trackingSettings.SetClickTracking(clickTracking)
	openTracking := mail.NewOpenTrackingSetting()
	openTracking.SetEnable(false)
	trackingSettings.SetOpenTracking(openTracking)
	m.SetTrackingSettings(trackingSettings)

	response, err := p.client.Send(m)
	if err != nil {
		return &SendResult{ProviderName: p.GetName(), Success: false, Error: err}, nil
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return &SendResult{ProviderName: p.GetName(), Success: true}, nil
	}

	return &SendResult{
		ProviderName: p.GetName(),
		Success:      false,
		Error:        fmt.Errorf("SendGrid API error: %d - %s", response.StatusCode, response.Body),
	}, nil
}

// GetName returns the provider name
func (p *SendGridProvider) GetName() string {
	return "sendgrid"
}

// SupportsChannel returns the supported channel
func (p *SendGridProvider) SupportsChannel() string {
	return models.ChannelEmail
}
