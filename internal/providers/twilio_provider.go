package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"notify-service/internal/models"
)

// TwilioProvider sends SMS via the Twilio REST API
type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewTwilioProvider creates a new Twilio SMS provider
func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{},
	}
}

// twilioResponse is the subset of the Twilio message resource we read
type twilioResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send sends an SMS via Twilio
func (p *TwilioProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	urlStr := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", p.accountSID)

	data := url.Values{}
	data.Set("To", message.To)
	data.Set("From", p.from)
	data.Set("Body", message.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, strings.NewReader(data.Encode()))
	if err != nil {
		return &SendResult{ProviderName: p.GetName(), Success: false, Error: err}, nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return &SendResult{ProviderName: p.GetName(), Success: false, Error: err}, nil
	}
	defer resp.Body.Close()

	var twilioResp twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&twilioResp); err != nil {
		return &SendResult{ProviderName: p.GetName(), Success: false, Error: err}, nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &SendResult{ProviderName: p.GetName(), Success: true}, nil
	}

	errMsg := fmt.Sprintf("Twilio API error: %d", resp.StatusCode)
	if twilioResp.Message != "" {
		errMsg = fmt.Sprintf("%s - %s", errMsg, twilioResp.Message)
	}

	return &SendResult{
		ProviderName: p.GetName(),
		Success:      false,
		Error:        fmt.Errorf("%s", errMsg),
	}, nil
}

// GetName returns the provider name
func (p *TwilioProvider) GetName() string {
	return "twilio"
}

// SupportsChannel returns the supported channel
func (p *TwilioProvider) SupportsChannel() string {
	return models.ChannelSMS
}
