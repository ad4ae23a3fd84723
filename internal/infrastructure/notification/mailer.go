// Package notification delivers account verification and recovery mails.
package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/neuronek/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Message is a plain text + HTML mail to a single recipient.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer when a host is configured, otherwise a
// mailer that only logs.
func NewMailer(cfg config.VerificationConfig, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return NewLoggingMailer(logger)
	}
	return NewSMTPMailer(cfg, logger)
}

// LoggingMailer writes messages to the log instead of delivering them.
type LoggingMailer struct {
	logger *zap.Logger
}

// NewLoggingMailer creates a LoggingMailer.
func NewLoggingMailer(logger *zap.Logger) *LoggingMailer {
	return &LoggingMailer{logger: logger.Named("mailer")}
}

// Send logs msg at info level.
func (m *LoggingMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not delivered (no SMTP host configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers multipart mails over SMTP with PLAIN auth.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	send   sendFunc
	logger *zap.Logger
}

// NewSMTPMailer creates an SMTPMailer from the verification settings.
func NewSMTPMailer(cfg config.VerificationConfig, logger *zap.Logger) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr:   fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from:   cfg.MailFrom,
		auth:   auth,
		send:   smtp.SendMail,
		logger: logger.Named("mailer"),
	}
}

// Send delivers msg. The context is not honoured by net/smtp.
func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	if err := m.send(m.addr, m.auth, m.from, []string{msg.To}, m.compose(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	m.logger.Debug("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

const mimeBoundary = "neuronek-boundary"

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", mimeBoundary, msg.Text)
	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", mimeBoundary, msg.HTML)
	}
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}
