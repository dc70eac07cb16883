package storefront

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRecord is the bun model backing Account. The verification columns
// are nullable; AccountState is derived from them on load.
type AccountRecord struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	Name            string     `bun:"name,notnull"`
	Email           string     `bun:"email,notnull,unique"`
	PasswordHash    string     `bun:"password_hash,notnull"`
	Role            string     `bun:"role,notnull"`
	OTPCode         *string    `bun:"otp_code"`
	OTPExpiresAt    *time.Time `bun:"otp_expires_at"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull"`
}

// Accounts stores accounts
type Accounts interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Save(ctx context.Context, account *Account) (*Account, error)
	SaveTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accounts struct {
	records repository.Repository[*AccountRecord]
	db      *bun.DB
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository returns a bun backed Accounts
func NewAccountsRepository(db *bun.DB) Accounts {
	records := repository.NewRepository[*AccountRecord](db, repository.ModelHandlers[*AccountRecord]{
		NewRecord: func() *AccountRecord { return &AccountRecord{} },
		GetID: func(r *AccountRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *AccountRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		records: records,
		db:      db,
	}
}

func (a *accounts) Create(ctx context.Context, account *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, account)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	record, err := accountRecordFrom(account)
	if err != nil {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := a.records.CreateTx(ctx, tx, record)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, NewDuplicateEmailError()
		}
		return nil, err
	}

	return created.toAccount()
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record, err := a.records.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return record.toAccount()
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

// GetByEmailTx matches the email exactly as stored.
func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &AccountRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return record.toAccount()
}

func (a *accounts) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	q := a.db.NewSelect().
		Model((*AccountRecord)(nil)).
		Where("?TableAlias.email = ?", email)

	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id <> ?", exclude)
	}

	return q.Exists(ctx)
}

func (a *accounts) Save(ctx context.Context, account *Account) (*Account, error) {
	return a.SaveTx(ctx, a.db, account)
}

// SaveTx writes every column, nullable verification columns included.
func (a *accounts) SaveTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	record, err := accountRecordFrom(account)
	if err != nil {
		return nil, err
	}

	res, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, NewDuplicateEmailError()
		}
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrAccountNotFound
	}

	return record.toAccount()
}

func (a *accounts) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *accounts) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*AccountRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *AccountRecord) toAccount() (*Account, error) {
	role, ok := ParseRole(r.Role)
	if !ok {
		role = RoleUser
	}

	account := &Account{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}

	switch {
	case r.EmailVerifiedAt != nil && r.OTPCode == nil && r.OTPExpiresAt == nil:
		account.State = VerifiedState{VerifiedAt: *r.EmailVerifiedAt}
	case r.EmailVerifiedAt == nil && r.OTPCode != nil && r.OTPExpiresAt != nil:
		account.State = PendingState{Code: *r.OTPCode, ExpiresAt: *r.OTPExpiresAt}
	default:
		return nil, ErrInconsistentState
	}

	return account, nil
}

func accountRecordFrom(a *Account) (*AccountRecord, error) {
	if a == nil || a.State == nil {
		return nil, ErrInconsistentState
	}

	record := &AccountRecord{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}

	switch s := a.State.(type) {
	case PendingState:
		code := s.Code
		expires := s.ExpiresAt
		record.OTPCode = &code
		record.OTPExpiresAt = &expires
	case VerifiedState:
		verified := s.VerifiedAt
		record.EmailVerifiedAt = &verified
	default:
		return nil, ErrInconsistentState
	}

	return record, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
