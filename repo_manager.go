package storefront

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Accounts() Accounts
	AccessTokens() AccessTokens
	Products() Products
}

type mngr struct {
	db           *bun.DB
	accounts     Accounts
	accessTokens AccessTokens
	products     Products
}

// NewRepositoryManager wires every repository to db
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:           db,
		accounts:     NewAccountsRepository(db),
		accessTokens: NewAccessTokensRepository(db),
		products:     NewProductsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager needs a database")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.accessTokens == nil {
		return errors.New("repository accessTokens should be initialized")
	}

	if m.products == nil {
		return errors.New("repository products should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) AccessTokens() AccessTokens {
	return m.accessTokens
}

func (m mngr) Products() Products {
	return m.products
}

// OpenDB opens a sqlite database. A single connection keeps ":memory:"
// databases alive across queries.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates tables and indexes when missing.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*AccountRecord)(nil),
		(*AccessToken)(nil),
		(*Product)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	_, err := db.NewCreateIndex().
		Model((*AccessToken)(nil)).
		Index("idx_personal_access_tokens_account_id").
		Column("account_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create token index: %w", err)
	}

	return nil
}
