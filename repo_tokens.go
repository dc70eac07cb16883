package storefront

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccessToken is the row behind an issued bearer token. Deleting the row
// revokes the token.
type AccessToken struct {
	bun.BaseModel `bun:"table:personal_access_tokens,alias:pat"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid"`
	Name          string     `bun:"name,notnull"`
	LastUsedAt    *time.Time `bun:"last_used_at"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
}

// AccessTokens stores token rows
type AccessTokens interface {
	CreateTx(ctx context.Context, tx bun.IDB, token *AccessToken) (*AccessToken, error)
	Find(ctx context.Context, id, accountID uuid.UUID) (*AccessToken, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int64, error)
}

type accessTokens struct {
	records repository.Repository[*AccessToken]
	db      *bun.DB
}

var _ AccessTokens = (*accessTokens)(nil)

// NewAccessTokensRepository returns a bun backed AccessTokens
func NewAccessTokensRepository(db *bun.DB) AccessTokens {
	records := repository.NewRepository[*AccessToken](db, repository.ModelHandlers[*AccessToken]{
		NewRecord: func() *AccessToken { return &AccessToken{} },
		GetID: func(t *AccessToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *AccessToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &accessTokens{
		records: records,
		db:      db,
	}
}

func (r *accessTokens) CreateTx(ctx context.Context, tx bun.IDB, token *AccessToken) (*AccessToken, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	return r.records.CreateTx(ctx, tx, token)
}

func (r *accessTokens) Find(ctx context.Context, id, accountID uuid.UUID) (*AccessToken, error) {
	token := &AccessToken{}
	err := r.db.NewSelect().
		Model(token).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return token, nil
}

func (r *accessTokens) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*AccessToken)(nil)).
		Set("last_used_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *accessTokens) CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*AccessToken)(nil)).
		Where("?TableAlias.account_id = ?", accountID).
		Count(ctx)
}

func (r *accessTokens) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.DeleteByAccountTx(ctx, r.db, accountID)
}

func (r *accessTokens) DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*AccessToken)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
