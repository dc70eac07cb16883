package storefront_test

import (
	"context"
	"sync"
	"testing"
	"time"

	storefront "github.com/goliatone/go-storefront"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// MockMailer implements storefront.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	args := m.Called(ctx, to, code, ttl)
	return args.Error(0)
}

// MockGuard implements storefront.Guard
type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Authorize(ctx context.Context, token string, role storefront.Role) (*storefront.Account, error) {
	args := m.Called(ctx, token, role)
	account, _ := args.Get(0).(*storefront.Account)
	return account, args.Error(1)
}

// recordingMailer keeps the last code sent per address
type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{codes: map[string]string{}}
}

func (m *recordingMailer) SendOTP(_ context.Context, to, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[to] = code
	return nil
}

func (m *recordingMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func (m *recordingMailer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []storefront.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event storefront.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []storefront.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storefront.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testConfig struct{}

func (testConfig) GetSigningKey() string              { return "test-signing-key" }
func (testConfig) GetIssuer() string                  { return "storefront-test" }
func (testConfig) GetAudience() []string              { return []string{"storefront-test"} }
func (testConfig) GetOTPTTL() time.Duration           { return storefront.DefaultOTPTTL }
func (testConfig) GetOTPMaxAttempts() int             { return 0 }
func (testConfig) GetOTPAttemptWindow() time.Duration { return time.Hour }
func (testConfig) GetBcryptCost() int                 { return bcrypt.MinCost }
func (testConfig) GetDebug() bool                     { return false }

// testEnv wires services against an in-memory database
type testEnv struct {
	db       *bun.DB
	repo     storefront.RepositoryManager
	clock    *testClock
	mailer   *recordingMailer
	sink     *recordingSink
	hasher   storefront.PasswordHasher
	tokens   *storefront.TokenServiceImpl
	accounts *storefront.AccountService
	catalog  *storefront.CatalogService
	guard    storefront.Guard
	attempts storefront.AttemptLimiter
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := storefront.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, storefront.CreateSchema(ctx, db))
	return db
}

// testOTPMaxAttempts is the failed code budget for limiter tests
const testOTPMaxAttempts = 3

// newTestEnv mirrors the default configuration, where failed codes are
// not limited.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newLimitedTestEnv(t, testConfig{}.GetOTPMaxAttempts())
}

// newLimitedTestEnv enables the failed code limiter with maxAttempts
func newLimitedTestEnv(t *testing.T, maxAttempts int) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := storefront.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	env := &testEnv{
		db:     db,
		repo:   repo,
		clock:  newTestClock(),
		mailer: newRecordingMailer(),
		sink:   &recordingSink{},
		hasher: storefront.NewBcryptHasher(bcrypt.MinCost),
	}

	logger := storefront.NopLogger()

	env.attempts = storefront.NewMemoryAttemptLimiter(maxAttempts, time.Hour, env.clock.Now)
	env.tokens = storefront.NewTokenService(repo, testConfig{},
		storefront.WithTokenClock(env.clock.Now),
		storefront.WithTokenLogger(logger),
	)
	env.accounts = storefront.NewAccountService(repo, env.tokens, env.mailer,
		storefront.WithAccountClock(env.clock.Now),
		storefront.WithAccountLogger(logger),
		storefront.WithPasswordHasher(env.hasher),
		storefront.WithAttemptLimiter(env.attempts),
		storefront.WithActivitySink(env.sink),
	)
	env.catalog = storefront.NewCatalogService(repo,
		storefront.WithCatalogClock(env.clock.Now),
		storefront.WithCatalogLogger(logger),
		storefront.WithCatalogActivitySink(env.sink),
	)
	env.guard = storefront.NewGuard(env.tokens, logger)

	return env
}

// register creates a pending account and returns the mailed code
func (e *testEnv) register(t *testing.T, name, email, password string) string {
	t.Helper()
	_, err := e.accounts.Register(context.Background(), storefront.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	code := e.mailer.code(email)
	require.Len(t, code, 6)
	return code
}

// verifiedAccount registers and verifies an account, returning its token
func (e *testEnv) verifiedAccount(t *testing.T, name, email, password string) (*storefront.Account, string) {
	t.Helper()
	code := e.register(t, name, email, password)
	account, token, err := e.accounts.VerifyOTP(context.Background(), storefront.VerifyOTPInput{
		Email:   email,
		OTPCode: code,
	})
	require.NoError(t, err)
	return account, token
}

// adminAccount seeds an admin and logs it in
func (e *testEnv) adminAccount(t *testing.T) (*storefront.Account, string) {
	t.Helper()
	ctx := context.Background()
	admin, created, err := storefront.SeedAdmin(ctx, e.repo, e.hasher, storefront.AdminSeed{
		Name:     "Super Admin",
		Email:    "admin@example.com",
		Password: "admin123",
	}, e.clock.Now())
	require.NoError(t, err)
	require.True(t, created)

	_, token, err := e.accounts.Login(ctx, storefront.LoginInput{
		Email:    "admin@example.com",
		Password: "admin123",
	})
	require.NoError(t, err)
	return admin, token
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }
