package email

import (
	"context"
	"fmt"
	"net/smtp"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

// HeaderTemplateID names the template a rendered message was built from.
const HeaderTemplateID = "X-Template-ID"

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a new SMTPSender, or a LoggingSender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		utils.Warn("SMTP host not configured, using logging email sender", nil)
		return &LoggingSender{cfg: cfg}
	}

	auth := smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	utils.Info("email sent via SMTP", map[string]any{"recipients": len(to), "subject": subject})
	return nil
}

// LoggingSender just logs email details. Useful for development or when SMTP isn't configured.
type LoggingSender struct {
	cfg *config.Config
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	utils.Info("email (logged, not sent)", map[string]any{
		"to":      to,
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"raw":     string(rawMessage),
	})
	return nil
}
