package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

const serviceName = "risk-auth-service"

// SMTPConfig carries the outbound mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLSMode  string // auto | starttls | ssl | none
	Timeout  time.Duration
}

// SMTPSender delivers OTP codes by email.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{
		cfg:    cfg,
		logger: slog.Default().With("service", serviceName, "module", "notify", "layer", "adapter"),
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, msg ports.OTPMessage) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", "Your verification code")
	m.SetBody("text/plain", renderText(msg))
	m.AddAlternative("text/html", renderHTML(msg))

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.Timeout = s.cfg.Timeout
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		s.logger.ErrorContext(ctx, "otp email delivery failed",
			"operation", "send_otp",
			"outcome", "failure",
			"attempt_id", msg.AttemptID,
			"error", err,
		)
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.InfoContext(ctx, "otp email delivered",
		"operation", "send_otp",
		"outcome", "success",
		"attempt_id", msg.AttemptID,
	)
	return nil
}

func renderText(msg ports.OTPMessage) string {
	greeting := "Hello"
	if msg.Name != "" {
		greeting += " " + msg.Name
	}
	return fmt.Sprintf("%s,\n\nYour verification code is %s.\nIt expires at %s.\n\nIf you did not try to sign in, ignore this message.\n",
		greeting, msg.Code, msg.ExpiresAt.UTC().Format(time.RFC1123))
}

func renderHTML(msg ports.OTPMessage) string {
	return fmt.Sprintf(`<p>Your verification code is <strong>%s</strong>.</p><p>It expires at %s.</p>`,
		msg.Code, msg.ExpiresAt.UTC().Format(time.RFC1123))
}
