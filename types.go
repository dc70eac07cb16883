package storefront

import (
	"context"
	"time"
)

// Logger is the structured logger used across the package. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the options the services need
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetOTPTTL() time.Duration
	GetOTPMaxAttempts() int
	GetOTPAttemptWindow() time.Duration
	GetBcryptCost() int
	GetDebug() bool
}

// Mailer delivers the verification code to an email address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, to, code string, ttl time.Duration) error

// SendOTP implements Mailer.
func (f MailerFunc) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	return f(ctx, to, code, ttl)
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Guard resolves a bearer token to an account. An empty role accepts any
// authenticated account.
type Guard interface {
	Authorize(ctx context.Context, token string, role Role) (*Account, error)
}
