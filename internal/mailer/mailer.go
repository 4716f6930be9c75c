package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"eventide/internal/model"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers a plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Enabled reports whether an SMTP host is configured. A disabled mailer
// logs messages instead of sending them.
func (m *Mailer) Enabled() bool { return m.cfg.Host != "" }

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.Enabled() {
		m.log.Info().Str("to", to).Str("subject", subject).Msg("mail disabled, message not sent")
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, to, subject, body,
	)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Str("to", to).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}
	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// StatusEmail builds the notification for a registration status change.
func StatusEmail(eventName string, status model.RegistrationStatus) (subject, body string) {
	switch status {
	case model.RegistrationApproved:
		subject = "Your registration is approved"
		body = fmt.Sprintf("Hello!\n\nYour registration for %q has been approved. Bring your QR code to the venue.", eventName)
	case model.RegistrationRejected:
		subject = "Your registration was not approved"
		body = fmt.Sprintf("Hello!\n\nUnfortunately your registration for %q was rejected.", eventName)
	case model.RegistrationPending:
		subject = "Your registration is pending"
		body = fmt.Sprintf("Hello!\n\nYour registration for %q is waiting for the organizer's review.", eventName)
	default:
		subject = "Registration update"
		body = fmt.Sprintf("Hello!\n\nYour registration for %q is now %s.", eventName, strings.ToLower(string(status)))
	}
	return subject, body
}

// CertificateEmail builds the message announcing an issued certificate.
func CertificateEmail(eventName, studentName, url string) (subject, body string) {
	subject = "Your certificate is ready"
	body = fmt.Sprintf("Hello %s!\n\nThank you for attending %q. Your certificate is available at %s", studentName, eventName, url)
	return subject, body
}
