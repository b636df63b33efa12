package mail

import (
	"fmt"
	"log/slog"

	"github.com/cifan-festival/submission-service/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends account emails over SMTP. With no SMTP host configured it
// degrades to logging the verification link, which keeps local
// development mail-server free.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewMailer(cfg config.SMTP) *Mailer {
	m := &Mailer{
		from:    cfg.From,
		baseURL: cfg.BaseURL,
	}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// SendVerification delivers the email verification link for a new account.
func (m *Mailer) SendVerification(to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.baseURL, token)

	if m.dialer == nil {
		slog.Info("SMTP not configured, logging verification link",
			slog.String("to", to),
			slog.String("link", link))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Verify your festival account")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Welcome to the festival submission portal.\n\nPlease verify your email address:\n%s\n", link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
