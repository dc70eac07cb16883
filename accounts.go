package storefront

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountService runs the account lifecycle: registration, OTP
// verification, login, logout and profile changes.
type AccountService struct {
	repo        RepositoryManager
	tokens      TokenService
	mailer      Mailer
	hasher      PasswordHasher
	attempts    AttemptLimiter
	generateOTP OTPGenerator
	otpTTL      time.Duration
	logger      Logger
	activity    ActivitySink
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AccountServiceOption customizes the account service
type AccountServiceOption func(*AccountService)

// WithAccountClock injects a custom clock
func WithAccountClock(clock func() time.Time) AccountServiceOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithAccountLogger sets the logger
func WithAccountLogger(logger Logger) AccountServiceOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOTPTTL sets how long a registration code stays valid
func WithOTPTTL(ttl time.Duration) AccountServiceOption {
	return func(s *AccountService) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// WithOTPGenerator replaces the random code source
func WithOTPGenerator(gen OTPGenerator) AccountServiceOption {
	return func(s *AccountService) {
		if gen != nil {
			s.generateOTP = gen
		}
	}
}

// WithAttemptLimiter sets the failed OTP counter
func WithAttemptLimiter(limiter AttemptLimiter) AccountServiceOption {
	return func(s *AccountService) {
		if limiter != nil {
			s.attempts = limiter
		}
	}
}

// WithActivitySink sets the audit sink
func WithActivitySink(sink ActivitySink) AccountServiceOption {
	return func(s *AccountService) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithPasswordHasher sets the password hasher
func WithPasswordHasher(hasher PasswordHasher) AccountServiceOption {
	return func(s *AccountService) {
		if hasher != nil {
			s.hasher = hasher
		}
	}
}

// NewAccountService returns an AccountService
func NewAccountService(repo RepositoryManager, tokens TokenService, mailer Mailer, opts ...AccountServiceOption) *AccountService {
	s := &AccountService{
		repo:        repo,
		tokens:      tokens,
		mailer:      mailer,
		hasher:      NewBcryptHasher(DefaultBcryptCost),
		attempts:    NoopAttemptLimiter(),
		generateOTP: GenerateOTP,
		otpTTL:      DefaultOTPTTL,
		logger:      defLogger(),
		activity:    noopActivitySink{},
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *AccountService) recorder() activityRecorder {
	return activityRecorder{sink: s.activity, logger: s.logger, now: s.now}
}

// Register creates a pending account and mails its code. When the mail
// cannot be sent the account is deleted again and the caller gets a
// mail dispatch error.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.Accounts().EmailTaken(ctx, in.Email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewDuplicateEmailError()
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	code, err := s.generateOTP()
	if err != nil {
		return nil, err
	}

	now := s.now()
	account, err := s.repo.Accounts().Create(ctx, &Account{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		State:        NewPendingState(code, now, s.otpTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, account.Email, code, s.otpTTL); err != nil {
		s.logger.Error("otp dispatch failed, cancelling registration",
			"account_id", account.ID.String(),
			"error", err,
		)

		if derr := s.repo.Accounts().Delete(context.WithoutCancel(ctx), account.ID); derr != nil {
			s.logger.Error("failed to delete account after otp dispatch failure",
				"account_id", account.ID.String(),
				"error", derr,
			)
		}

		s.recorder().emit(ctx, ActivityEventRegistrationCancelled, account.ID.String(), map[string]any{
			"reason": "mail_dispatch_failed",
		})

		return nil, NewMailDispatchError(err)
	}

	s.logger.Info("account registered", "account_id", account.ID.String())
	s.recorder().emit(ctx, ActivityEventAccountRegistered, account.ID.String(), nil)

	return account, nil
}

// VerifyOTP checks the code for the email and on success verifies the
// account and issues a token. Checks run in order: account exists, attempt
// budget left, code matches, code not expired.
func (s *AccountService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*Account, string, error) {
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	var (
		verified *Account
		token    string
	)

	err := s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		account, err := s.repo.Accounts().GetByEmailTx(ctx, tx, in.Email)
		if err != nil {
			return err
		}

		exceeded, err := s.attempts.Exceeded(ctx, in.Email)
		if err != nil {
			s.logger.Warn("attempt limiter unavailable", "error", err)
		}
		if exceeded {
			return ErrTooManyAttempts
		}

		if err := account.Verify(in.OTPCode, s.now()); err != nil {
			if errors.Is(err, ErrInvalidOTP) {
				if ferr := s.attempts.Fail(ctx, in.Email); ferr != nil {
					s.logger.Warn("failed to record otp attempt", "error", ferr)
				}
			}
			return err
		}

		if verified, err = s.repo.Accounts().SaveTx(ctx, tx, account); err != nil {
			return err
		}

		token, err = s.tokens.IssueTx(ctx, tx, verified)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	if err := s.attempts.Reset(ctx, in.Email); err != nil {
		s.logger.Warn("failed to reset otp attempts", "error", err)
	}

	s.logger.Info("account verified", "account_id", verified.ID.String())
	s.recorder().emit(ctx, ActivityEventAccountVerified, verified.ID.String(), nil)

	return verified, token, nil
}

// Login returns the account and a fresh token. Unknown emails and wrong
// passwords fail with the same error.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Account, string, error) {
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	account, err := s.repo.Accounts().GetByEmail(ctx, in.Email)
	if err != nil {
		if !HasTextCode(err, TextCodeAccountNotFound) {
			return nil, "", err
		}
		_ = s.hasher.ComparePasswordAndHash(in.Password, s.fallbackHash())
		s.recorder().emit(ctx, ActivityEventLoginFailure, "", map[string]any{
			"reason": "unknown_email",
		})
		return nil, "", ErrInvalidCredentials
	}

	if err := s.hasher.ComparePasswordAndHash(in.Password, account.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Warn("password comparison error", "account_id", account.ID.String(), "error", err)
		}
		s.recorder().emit(ctx, ActivityEventLoginFailure, account.ID.String(), map[string]any{
			"reason": "password_mismatch",
		})
		return nil, "", ErrInvalidCredentials
	}

	if !account.IsVerified() {
		s.recorder().emit(ctx, ActivityEventLoginFailure, account.ID.String(), map[string]any{
			"reason": "not_verified",
		})
		return nil, "", ErrNotVerified
	}

	token, err := s.tokens.Issue(ctx, account)
	if err != nil {
		s.logger.Error("failed to issue token", "account_id", account.ID.String(), "error", err)
		return nil, "", err
	}

	s.recorder().emit(ctx, ActivityEventLoginSuccess, account.ID.String(), nil)

	return account, token, nil
}

// Logout revokes every token of the account.
func (s *AccountService) Logout(ctx context.Context, account *Account) error {
	revoked, err := s.tokens.RevokeAll(ctx, account)
	if err != nil {
		return err
	}

	s.recorder().emit(ctx, ActivityEventLogout, account.ID.String(), map[string]any{
		"revoked": revoked,
	})
	return nil
}

// UpdateProfile applies the fields present in the input.
func (s *AccountService) UpdateProfile(ctx context.Context, account *Account, in UpdateProfileInput) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	updated := *account
	changed := []string{}

	if in.Name != nil && *in.Name != updated.Name {
		updated.Name = *in.Name
		changed = append(changed, "name")
	}

	if in.Email != nil && *in.Email != updated.Email {
		taken, err := s.repo.Accounts().EmailTaken(ctx, *in.Email, account.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, NewDuplicateEmailError()
		}
		updated.Email = *in.Email
		changed = append(changed, "email")
	}

	if len(changed) == 0 {
		return account, nil
	}

	updated.UpdatedAt = s.now()

	saved, err := s.repo.Accounts().Save(ctx, &updated)
	if err != nil {
		return nil, err
	}

	s.recorder().emit(ctx, ActivityEventProfileUpdated, saved.ID.String(), map[string]any{
		"fields": changed,
	})

	return saved, nil
}

// ChangePassword replaces the password hash. Existing tokens stay valid.
func (s *AccountService) ChangePassword(ctx context.Context, account *Account, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	if err := s.hasher.ComparePasswordAndHash(in.CurrentPassword, account.PasswordHash); err != nil {
		return ErrWrongPassword
	}

	hash, err := s.hasher.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}

	updated := *account
	updated.PasswordHash = hash
	updated.UpdatedAt = s.now()

	if _, err := s.repo.Accounts().Save(ctx, &updated); err != nil {
		return err
	}

	s.recorder().emit(ctx, ActivityEventPasswordChanged, account.ID.String(), nil)
	return nil
}

func (s *AccountService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash = RandomPasswordHash(s.hasher)
	})
	return s.dummyHash
}
