package notify

import (
	"errors"
	"strings"

	"github.com/globaltrotters/apiserver/config"
	"gopkg.in/gomail.v2"
)

// Dialer delivers composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends HTML emails with a plain-text alternative over SMTP.
type Mailer struct {
	dialer Dialer
	from   string
}

// NewMailer constructs a Mailer from config.
func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp from address is required")
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewMailerWithDialer(dialer, cfg.From), nil
}

func NewMailerWithDialer(dialer Dialer, from string) *Mailer {
	return &Mailer{dialer: dialer, from: from}
}

func (m *Mailer) Send(to, subject, htmlBody, textBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
