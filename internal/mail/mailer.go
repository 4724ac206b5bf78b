package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer delivers transactional mail out-of-band.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(host, port, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers the message via SMTP
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", MaskEmail(to), err)
	}
	return nil
}

// LogMailer logs instead of sending; used when SMTP is not configured.
type LogMailer struct{}

// Send logs the outgoing mail (body included, so reset codes are readable in dev)
func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	log.Printf("mail (log only) to=%s subject=%q body=%q", MaskEmail(to), subject, body)
	return nil
}

// MaskEmail masks the local part of an email for logging (e.g. jo****@abc.com)
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 2 {
		return "****"
	}
	return email[:2] + strings.Repeat("*", at-2) + email[at:]
}
