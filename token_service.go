package storefront

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultTokenName labels rows minted by login and verification
const DefaultTokenName = "token"

// TokenClaims is the signed payload of a bearer token. There is no exp
// claim: a token lives until its row is deleted.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenService issues, resolves and revokes bearer tokens
type TokenService interface {
	Issue(ctx context.Context, account *Account) (string, error)
	IssueTx(ctx context.Context, tx bun.IDB, account *Account) (string, error)
	RevokeAll(ctx context.Context, account *Account) (int64, error)
	Resolve(ctx context.Context, raw string) (*Account, error)
}

// TokenServiceImpl implements TokenService on top of AccessTokens rows
type TokenServiceImpl struct {
	repo       RepositoryManager
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// TokenServiceOption customizes the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(repo RepositoryManager, cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	var aud jwt.ClaimStrings
	if a := cfg.GetAudience(); len(a) > 0 {
		aud = make(jwt.ClaimStrings, len(a))
		copy(aud, a)
	}

	ts := &TokenServiceImpl{
		repo:       repo,
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		audience:   aud,
		logger:     defLogger(),
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

func (ts *TokenServiceImpl) Issue(ctx context.Context, account *Account) (string, error) {
	var token string
	err := ts.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		token, err = ts.IssueTx(ctx, tx, account)
		return err
	})
	return token, err
}

// IssueTx stores a token row and signs its id.
func (ts *TokenServiceImpl) IssueTx(ctx context.Context, tx bun.IDB, account *Account) (string, error) {
	if account == nil || account.ID == uuid.Nil {
		return "", goerrors.New("cannot issue token without account", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError)
	}

	now := ts.now()
	row, err := ts.repo.AccessTokens().CreateTx(ctx, tx, &AccessToken{
		ID:        uuid.New(),
		AccountID: account.ID,
		Name:      DefaultTokenName,
		CreatedAt: now,
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store access token").
			WithCode(http.StatusInternalServerError)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       row.ID.String(),
			Issuer:   ts.issuer,
			Subject:  account.ID.String(),
			Audience: ts.audience,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Role: string(account.Role),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token").
			WithCode(http.StatusInternalServerError)
	}

	return signed, nil
}

// RevokeAll deletes every token row of the account. Revoking nothing is
// not an error.
func (ts *TokenServiceImpl) RevokeAll(ctx context.Context, account *Account) (int64, error) {
	if account == nil {
		return 0, nil
	}
	return ts.repo.AccessTokens().DeleteByAccount(ctx, account.ID)
}

// Resolve validates the token and returns the account owning it.
func (ts *TokenServiceImpl) Resolve(ctx context.Context, raw string) (*Account, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := ts.Validate(raw)
	if err != nil {
		ts.logger.Debug("token validation failed", "error", err)
		return nil, ErrUnauthenticated
	}

	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	row, err := ts.repo.AccessTokens().Find(ctx, tokenID, accountID)
	if err != nil {
		if HasTextCode(err, TextCodeUnauthenticated) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	account, err := ts.repo.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if HasTextCode(err, TextCodeAccountNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if err := ts.repo.AccessTokens().Touch(ctx, row.ID, ts.now()); err != nil {
		ts.logger.Warn("failed to stamp token usage", "token_id", row.ID.String(), "error", err)
	}

	return account, nil
}

// Validate checks signature, algorithm, issuer and audience.
func (ts *TokenServiceImpl) Validate(raw string) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("unable to decode token claims")
	}

	return claims, nil
}
