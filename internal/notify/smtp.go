package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig mirrors the SMTP_* settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From    string
	Timeout time.Duration
}

// Configured reports whether credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// SMTP sends plain-text mail with STARTTLS and PLAIN auth.
type SMTP struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	s := &SMTP{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// Deliver returns false without touching the network when credentials are unset.
func (s *SMTP) Deliver(ctx context.Context, to, subject, body string) bool {
	if !s.cfg.Configured() {
		slog.InfoContext(ctx, "Email notifications are not configured, skipping", "to", to, "subject", subject)
		return false
	}

	msg, err := s.buildMessage(to, subject, body)
	if err != nil {
		slog.WarnContext(ctx, "Failed to build email", "to", to, "error", err)
		return false
	}

	if err := s.send(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to send email",
			"to", to,
			"subject", subject,
			"smtp_host", s.cfg.Host,
			"error", err)
		return false
	}

	slog.InfoContext(ctx, "Email sent", "to", to, "subject", subject)
	return true
}

func (s *SMTP) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (s *SMTP) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
