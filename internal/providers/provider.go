package providers

import (
	"context"

	"github.com/google/uuid"
)

// Provider is a pluggable channel sender. Implementations report delivery
// failure through the result rather than panicking the pipeline; the returned
// error carries the cause for logging.
type Provider interface {
	Send(ctx context.Context, message *Message) (*SendResult, error)
	GetName() string
	SupportsChannel() string
}

// Message represents a message to be delivered
type Message struct {
	To        string
	Subject   string
	Body      string
	Context   map[string]interface{} // template variables
	AccountID *uuid.UUID             // explicit sending account, SMTP only
}

// SendResult represents the outcome of a send operation
type SendResult struct {
	ProviderName string
	Success      bool
	Error        error
}
