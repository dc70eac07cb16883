// Package mailer delivers verification codes by email.
package mailer

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// DefaultSubject is the subject of verification emails
const DefaultSubject = "Email Verification - OTP"

// Config holds the SMTP connection settings
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Subject  string
}

// SMTP sends verification codes through an SMTP server
type SMTP struct {
	from    string
	subject string
	sender  func(msg *gomail.Message) error
}

// Option configures SMTP
type Option func(*SMTP)

// WithSender replaces the SMTP transport, mostly for tests.
func WithSender(sender gomail.Sender) Option {
	return func(s *SMTP) {
		if sender != nil {
			s.sender = func(msg *gomail.Message) error {
				return gomail.Send(sender, msg)
			}
		}
	}
}

// NewSMTP returns a mailer dialing cfg.Host for every message.
func NewSMTP(cfg Config, opts ...Option) *SMTP {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	s := &SMTP{
		from:    cfg.From,
		subject: subject,
		sender: func(msg *gomail.Message) error {
			return dialer.DialAndSend(msg)
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// SendOTP mails code to the recipient.
func (s *SMTP) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before sending otp")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", s.subject)
	m.SetBody("text/plain", OTPBody(code, ttl))

	if err := s.sender(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// OTPBody renders the plain text body of a verification email
func OTPBody(code string, ttl time.Duration) string {
	minutes := int(math.Ceil(ttl.Minutes()))
	return fmt.Sprintf("Your verification code is: %s (valid for %d minutes)", code, minutes)
}

// Writer prints verification emails to w instead of sending them. It is
// used when no SMTP host is configured.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	subject string
}

// NewWriter returns a Writer mailer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, subject: DefaultSubject}
}

func (m *Writer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := fmt.Fprintf(m.w, "To: %s\nSubject: %s\n\n%s\n", to, m.subject, OTPBody(code, ttl))
	return err
}
