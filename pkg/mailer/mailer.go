// Package mailer sends HTML email over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the SMTP connection and sender identity.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Message is one email to send.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// SMTP sends messages through gomail.
type SMTP struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTP creates a sender for cfg.
func NewSMTP(cfg SMTPConfig) *SMTP {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &SMTP{cfg: cfg, dialer: d}
}

// Send delivers msg.
func (s *SMTP) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mailer: recipient is required")
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}
