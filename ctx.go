package storefront

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var accountCtxKey = &contextKey{"account"}

// AccountLocalsKey is the fiber Locals key holding the resolved account
const AccountLocalsKey = "account"

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(r context.Context, account *Account) context.Context {
	return context.WithValue(r, accountCtxKey, account)
}

// FromContext finds the account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// SetRequestAccount stores the account on the request, both in Locals and
// in the user context.
func SetRequestAccount(c *fiber.Ctx, account *Account) {
	c.Locals(AccountLocalsKey, account)
	c.SetUserContext(WithContext(c.UserContext(), account))
}

// RequestAccount returns the account resolved by the guard middleware
func RequestAccount(c *fiber.Ctx) (*Account, bool) {
	raw := c.Locals(AccountLocalsKey)
	if raw == nil {
		return nil, false
	}
	account, ok := raw.(*Account)
	return account, ok && account != nil
}
