package providers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"notify-service/internal/models"
	"notify-service/internal/repository"
	"notify-service/internal/templates"
)

// SMTPProvider delivers email over SMTP using accounts from the credential
// store. Credentials resolve in priority order: the message's explicit account
// reference, then the default active account, then environment variables.
// SMTP-layer failures are caught per class, stamped on the account record and
// reported as a failed result, never raised.
type SMTPProvider struct {
	accounts *repository.EmailAccountRepository
	logger   *logrus.Entry
}

// NewSMTPProvider creates a new SMTP email provider
func NewSMTPProvider(accounts *repository.EmailAccountRepository, logger *logrus.Logger) *SMTPProvider {
	return &SMTPProvider{
		accounts: accounts,
		logger:   logger.WithField("provider", "smtp"),
	}
}

// Send renders the message, wraps it in the branded layout and delivers it
// using the resolved sending account.
func (p *SMTPProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	account, persisted, err := p.resolveAccount(ctx, message)
	if err != nil {
		return p.failure(fmt.Errorf("no sending account available: %w", err)), nil
	}

	renderCtx := templates.BuildContext(message.To, message.Context)

	subject, err := templates.Render(message.Subject, renderCtx)
	if err != nil {
		return p.failure(fmt.Errorf("subject render failed: %w", err)), nil
	}
	body, err := templates.Render(message.Body, renderCtx)
	if err != nil {
		return p.failure(fmt.Errorf("body render failed: %w", err)), nil
	}

	html := templates.WrapLayout(subject, body)
	sendErr := p.deliver(account, message.To, subject, html)

	if persisted {
		if markErr := p.accounts.MarkUsed(ctx, account, sendErr); markErr != nil {
			p.logger.WithError(markErr).Warn("Failed to record account usage")
		}
	}

	if sendErr != nil {
		p.logger.WithError(sendErr).WithField("to", message.To).Warn("SMTP delivery failed")
		return p.failure(sendErr), nil
	}

	return &SendResult{ProviderName: p.GetName(), Success: true}, nil
}

// resolveAccount picks the sending credentials. The bool reports whether the
// account is a stored row whose telemetry should be updated.
func (p *SMTPProvider) resolveAccount(ctx context.Context, message *Message) (*models.EmailAccount, bool, error) {
	if message.AccountID != nil {
		account, err := p.accounts.GetByID(ctx, *message.AccountID)
		if err != nil {
			return nil, false, fmt.Errorf("referenced account not found: %w", err)
		}
		return account, true, nil
	}

	account, err := p.accounts.DefaultActive(ctx)
	if err == nil {
		return account, true, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	return envAccount()
}

// envAccount builds a sending account from environment variables, the last
// resort before failing the send.
func envAccount() (*models.EmailAccount, bool, error) {
	host := os.Getenv("SMTP_HOST")
	address := os.Getenv("SMTP_ADDRESS")
	if host == "" || address == "" {
		return nil, false, fmt.Errorf("SMTP_HOST and SMTP_ADDRESS not configured")
	}

	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			port = parsed
		}
	}

	return &models.EmailAccount{
		Address: address,
		Secret:  os.Getenv("SMTP_PASSWORD"),
		Host:    host,
		Port:    port,
		UseTLS:  os.Getenv("SMTP_USE_TLS") != "false",
	}, false, nil
}

// deliver performs the SMTP conversation. Each failure class is wrapped with
// a human-readable reason so the account record tells an operator what broke.
func (p *SMTPProvider) deliver(account *models.EmailAccount, to, subject, htmlBody string) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", account.Address))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := net.JoinHostPort(account.Host, strconv.Itoa(account.Port))
	auth := smtp.PlainAuth("", account.Address, account.Secret, account.Host)

	if !account.UseTLS {
		if err := smtp.SendMail(addr, auth, account.Address, []string{to}, []byte(msg.String())); err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: account.Host})
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, account.Host)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if err := client.Mail(account.Address); err != nil {
		return fmt.Errorf("sender rejected: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("recipient refused: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if _, err := w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	return nil
}

func (p *SMTPProvider) failure(err error) *SendResult {
	return &SendResult{
		ProviderName: p.GetName(),
		Success:      false,
		Error:        err,
	}
}

// GetName returns the provider name
func (p *SMTPProvider) GetName() string {
	return "smtp"
}

// SupportsChannel returns the supported channel
func (p *SMTPProvider) SupportsChannel() string {
	return models.ChannelEmail
}
