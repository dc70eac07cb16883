package storefront_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	storefront "github.com/goliatone/go-storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := storefront.DefaultSettings()

	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, "pretty", s.LogFormat)
	assert.Equal(t, "storefront", s.Issuer)
	assert.Equal(t, []string{"storefront"}, s.Audience)
	assert.Equal(t, storefront.DefaultOTPTTL, s.GetOTPTTL())
	assert.Equal(t, 0, s.GetOTPMaxAttempts(), "failed code limiting is opt in")
	assert.Equal(t, storefront.DefaultOTPAttemptWindow, s.GetOTPAttemptWindow())
	assert.Equal(t, 587, s.SMTPPort)
	assert.Equal(t, float64(2), s.RateLimitRPS)
	assert.Equal(t, 5, s.RateLimitBurst)
	assert.Equal(t, "Super Admin", s.AdminName)
	assert.False(t, s.GetDebug())

	assert.Error(t, s.Validate(), "signing key is required")
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	t.Setenv("APP_SIGNING_KEY", "from-env")
	t.Setenv("APP_OTP_TTL", "5m")
	t.Setenv("APP_OTP_MAX_ATTEMPTS", "4")

	s, err := storefront.LoadSettings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "from-env", s.GetSigningKey())
	assert.Equal(t, 5*time.Minute, s.GetOTPTTL())
	assert.Equal(t, 4, s.GetOTPMaxAttempts())
	assert.Equal(t, "storefront", s.GetIssuer())
	assert.NoError(t, s.Validate())
}

func TestLoadSettingsDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("APP_SIGNING_KEY=from-file\nAPP_ADMIN_NAME=Root\n"), 0o600))

	t.Setenv("APP_ADMIN_NAME", "Owner")
	t.Cleanup(func() { _ = os.Unsetenv("APP_SIGNING_KEY") })

	s, err := storefront.LoadSettings(context.Background(), file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", s.SigningKey)
	assert.Equal(t, "Owner", s.AdminName, "process environment wins over the dotenv file")
}

func TestSettingsValidate(t *testing.T) {
	base := func() *storefront.Settings {
		s := storefront.DefaultSettings()
		s.SigningKey = "k"
		return s
	}

	require.NoError(t, base().Validate())

	s := base()
	s.OTPTTL = 0
	assert.Error(t, s.Validate())

	s = base()
	s.OTPMaxAttempts = -1
	assert.Error(t, s.Validate())

	s = base()
	s.OTPAttemptWindow = 0
	assert.Error(t, s.Validate())

	s = base()
	s.AdminEmail = "root@x.com"
	assert.Error(t, s.Validate())

	s.AdminPassword = "rootpass"
	assert.NoError(t, s.Validate())
}

func TestSettingsRedacted(t *testing.T) {
	s := storefront.Settings{SigningKey: "k", SMTPPass: "p", AdminPassword: "a", SMTPUser: "user"}
	r := s.Redacted()

	assert.Equal(t, "******", r.SigningKey)
	assert.Equal(t, "******", r.SMTPPass)
	assert.Equal(t, "******", r.AdminPassword)
	assert.Equal(t, "", r.RedisPassword)
	assert.Equal(t, "user", r.SMTPUser)
	assert.Equal(t, "k", s.SigningKey)
}
