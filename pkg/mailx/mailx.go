// Package mailx sends plain-text email. It only knows about transport; what
// the message says is the caller's business.
package mailx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

var (
	ErrNoRecipients     = errors.New("mailx: message has no recipients")
	ErrMultilineSubject = errors.New("mailx: subject must be a single line")
)

// Message is a single outbound email.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Validate enforces the invariants every transport relies on.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return ErrMultilineSubject
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// Attempts is the number of delivery attempts before giving up (default 3).
	Attempts uint
	// Delay is the base backoff between attempts (default 500ms).
	Delay time.Duration
}

// SMTPSender delivers through an SMTP relay with PLAIN auth when credentials
// are configured. Transient failures are retried with backoff.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger

	// sendMail is smtp.SendMail, swapped out in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	return &SMTPSender{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	raw := encode(msg, time.Now())

	err := retry.Do(
		func() error {
			return s.sendMail(addr, auth, msg.From, msg.To, raw)
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.Attempts),
		retry.Delay(s.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("smtp delivery failed, retrying",
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("mailx: smtp send: %w", err)
	}
	return nil
}

// encode renders an RFC 5322 message with a UTF-8 plain-text body.
func encode(msg Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of sending them. It is what
// runs when no SMTP host is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.Logger.Info("email not sent (no smtp host configured)",
		slog.String("from", msg.From),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
