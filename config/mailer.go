package config

import (
	"crypto/tls"
	"errors"

	mail "github.com/go-mail/mail/v2"
)

// ErrSMTPNotConfigured is returned when SMTP_HOST or SMTP_FROM is missing.
var ErrSMTPNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// Mailer sends HTML email through an SMTP relay.
type Mailer struct {
	host          string
	port          int
	user          string
	pass          string
	from          string
	skipTLSVerify bool
}

func NewMailer(s *Settings) *Mailer {
	port := s.SMTPPort
	if port == 0 {
		port = 587
	}
	return &Mailer{
		host:          s.SMTPHost,
		port:          port,
		user:          s.SMTPUser,
		pass:          s.SMTPPass,
		from:          s.SMTPFrom,
		skipTLSVerify: s.SMTPSkipTLSVerify,
	}
}

// SendMail delivers one message. An empty from falls back to SMTP_FROM.
func (m *Mailer) SendMail(from string, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if from == "" {
		from = m.from
	}
	if m.host == "" || from == "" {
		return ErrSMTPNotConfigured
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)

	// STARTTLS is mandatory on 587 (Gmail/Office365).
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,
		InsecureSkipVerify: m.skipTLSVerify,
	}

	return d.DialAndSend(msg)
}
