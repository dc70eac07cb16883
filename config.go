package storefront

import (
	"context"
	"os"
	"strings"
	"time"

	gconfig "github.com/goliatone/go-config/config"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Settings is the runtime configuration. It implements Config.
//
// Values come from DefaultSettings, then the optional config/app.json file,
// then APP_ prefixed environment variables: APP_SIGNING_KEY sets
// signing_key, APP_OTP_TTL sets otp_ttl and so on.
type Settings struct {
	Addr      string `koanf:"addr" json:"addr"`
	Debug     bool   `koanf:"debug" json:"debug"`
	LogFormat string `koanf:"log_format" json:"log_format"`

	DatabaseDSN string `koanf:"database_dsn" json:"database_dsn"`

	SigningKey string   `koanf:"signing_key" json:"signing_key"`
	Issuer     string   `koanf:"issuer" json:"issuer"`
	Audience   []string `koanf:"audience" json:"audience"`

	OTPTTL           time.Duration `koanf:"otp_ttl" json:"otp_ttl"`
	OTPMaxAttempts   int           `koanf:"otp_max_attempts" json:"otp_max_attempts"`
	OTPAttemptWindow time.Duration `koanf:"otp_attempt_window" json:"otp_attempt_window"`
	BcryptCost       int           `koanf:"bcrypt_cost" json:"bcrypt_cost"`

	SMTPHost string `koanf:"smtp_host" json:"smtp_host"`
	SMTPPort int    `koanf:"smtp_port" json:"smtp_port"`
	SMTPUser string `koanf:"smtp_user" json:"smtp_user"`
	SMTPPass string `koanf:"smtp_pass" json:"smtp_pass"`
	MailFrom string `koanf:"mail_from" json:"mail_from"`

	RedisAddr     string `koanf:"redis_addr" json:"redis_addr"`
	RedisPassword string `koanf:"redis_password" json:"redis_password"`
	RedisDB       int    `koanf:"redis_db" json:"redis_db"`

	RateLimitRPS   float64 `koanf:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst" json:"rate_limit_burst"`

	CORSOrigins string `koanf:"cors_origins" json:"cors_origins"`

	AdminName     string `koanf:"admin_name" json:"admin_name"`
	AdminEmail    string `koanf:"admin_email" json:"admin_email"`
	AdminPassword string `koanf:"admin_password" json:"admin_password"`
}

var _ Config = (*Settings)(nil)

// DefaultSettings holds the value of every key nothing else sets.
func DefaultSettings() *Settings {
	return &Settings{
		Addr:      ":8080",
		LogFormat: "pretty",

		DatabaseDSN: "file:storefront.db?cache=shared",

		Issuer:   "storefront",
		Audience: []string{"storefront"},

		OTPTTL:           DefaultOTPTTL,
		OTPMaxAttempts:   DefaultOTPMaxAttempts,
		OTPAttemptWindow: DefaultOTPAttemptWindow,
		BcryptCost:       DefaultBcryptCost,

		SMTPPort: 587,
		MailFrom: "no-reply@storefront.local",

		RateLimitRPS:   2,
		RateLimitBurst: 5,

		CORSOrigins: "*",

		AdminName: "Super Admin",
	}
}

// NewSettingsContainer returns a go-config container seeded with
// DefaultSettings. Call Load on it, then Raw.
func NewSettingsContainer() *gconfig.Container[*Settings] {
	return gconfig.New(DefaultSettings())
}

// LoadDotEnv exports the given dotenv files into the process environment.
// Missing files are skipped and variables that are already set are kept.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read "+file)
		}
	}
	return nil
}

// LoadSettings exports the dotenv files and loads Settings through a
// settings container.
func LoadSettings(ctx context.Context, files ...string) (*Settings, error) {
	if err := LoadDotEnv(files...); err != nil {
		return nil, err
	}

	container := NewSettingsContainer()
	if err := container.Load(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid configuration")
	}

	return container.Raw(), nil
}

// Validate checks the settings the server cannot run without
func (s *Settings) Validate() error {
	var problems []string

	if s.SigningKey == "" {
		problems = append(problems, "APP_SIGNING_KEY is required")
	}
	if s.OTPTTL <= 0 {
		problems = append(problems, "APP_OTP_TTL must be positive")
	}
	if s.OTPMaxAttempts < 0 {
		problems = append(problems, "APP_OTP_MAX_ATTEMPTS must not be negative")
	}
	if s.OTPAttemptWindow <= 0 {
		problems = append(problems, "APP_OTP_ATTEMPT_WINDOW must be positive")
	}
	if (s.AdminEmail == "") != (s.AdminPassword == "") {
		problems = append(problems, "APP_ADMIN_EMAIL and APP_ADMIN_PASSWORD must be set together")
	}

	if len(problems) > 0 {
		return goerrors.New(strings.Join(problems, "; "), goerrors.CategoryValidation)
	}
	return nil
}

// Redacted returns the settings with secrets masked, for debug dumps
func (s Settings) Redacted() Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return "******"
	}
	s.SigningKey = mask(s.SigningKey)
	s.SMTPPass = mask(s.SMTPPass)
	s.RedisPassword = mask(s.RedisPassword)
	s.AdminPassword = mask(s.AdminPassword)
	return s
}

func (s *Settings) GetSigningKey() string              { return s.SigningKey }
func (s *Settings) GetIssuer() string                  { return s.Issuer }
func (s *Settings) GetAudience() []string              { return s.Audience }
func (s *Settings) GetOTPTTL() time.Duration           { return s.OTPTTL }
func (s *Settings) GetOTPMaxAttempts() int             { return s.OTPMaxAttempts }
func (s *Settings) GetOTPAttemptWindow() time.Duration { return s.OTPAttemptWindow }
func (s *Settings) GetBcryptCost() int                 { return s.BcryptCost }
func (s *Settings) GetDebug() bool                     { return s.Debug }
