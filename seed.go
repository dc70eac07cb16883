package storefront

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AdminSeed describes the administrator created at startup
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// SeedAdmin creates a verified admin account unless the email exists. The
// id is derived from the email so repeated runs agree on it. The boolean
// reports whether an account was created.
func SeedAdmin(ctx context.Context, repo RepositoryManager, hasher PasswordHasher, seed AdminSeed, now time.Time) (*Account, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during admin seed",
		)
	default:
	}

	if seed.Email == "" || seed.Password == "" {
		return nil, false, nil
	}

	if seed.Name == "" {
		seed.Name = "Super Admin"
	}

	var (
		account *Account
		created bool
	)

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := repo.Accounts().GetByEmailTx(ctx, tx, seed.Email)
		if err == nil {
			account = existing
			return nil
		}
		if !HasTextCode(err, TextCodeAccountNotFound) {
			return err
		}

		hash, err := hasher.HashPassword(seed.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash admin password")
		}

		id, err := hashid.NewUUID(seed.Email)
		if err != nil {
			id = uuid.New()
		}

		account, err = repo.Accounts().CreateTx(ctx, tx, &Account{
			ID:           id,
			Name:         seed.Name,
			Email:        seed.Email,
			PasswordHash: hash,
			Role:         RoleAdmin,
			State:        VerifiedState{VerifiedAt: now},
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return account, created, nil
}
