package storefront

import (
	"context"
)

// GuardFunc adapts a function to the Guard interface.
type GuardFunc func(ctx context.Context, token string, role Role) (*Account, error)

// Authorize implements Guard.
func (f GuardFunc) Authorize(ctx context.Context, token string, role Role) (*Account, error) {
	return f(ctx, token, role)
}

type tokenGuard struct {
	tokens TokenService
	logger Logger
}

// NewGuard returns a Guard resolving tokens through tokens. Authentication
// is checked before the role: a bad token is always ErrUnauthenticated.
func NewGuard(tokens TokenService, logger Logger) Guard {
	if logger == nil {
		logger = defLogger()
	}
	return &tokenGuard{tokens: tokens, logger: logger}
}

func (g *tokenGuard) Authorize(ctx context.Context, token string, role Role) (*Account, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	account, err := g.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if role != "" && account.Role != role {
		g.logger.Info("role gate rejected account",
			"account_id", account.ID.String(),
			"role", string(account.Role),
			"required_role", string(role),
		)
		return nil, NewForbiddenRoleError(role)
	}

	return account, nil
}
