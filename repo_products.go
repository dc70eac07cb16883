package storefront

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Products stores catalog entries
type Products interface {
	List(ctx context.Context) ([]*Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Create(ctx context.Context, product *Product) (*Product, error)
	Update(ctx context.Context, product *Product) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type products struct {
	records repository.Repository[*Product]
	db      *bun.DB
}

var _ Products = (*products)(nil)

// NewProductsRepository returns a bun backed Products
func NewProductsRepository(db *bun.DB) Products {
	records := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &products{
		records: records,
		db:      db,
	}
}

func (r *products) List(ctx context.Context) ([]*Product, error) {
	records := make([]*Product, 0)
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return records, nil
}

func (r *products) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	record, err := r.records.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *products) Create(ctx context.Context, product *Product) (*Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.records.CreateTx(ctx, r.db, product)
}

// Update replaces the editable columns. Stock may legitimately be zero so
// the columns are set explicitly.
func (r *products) Update(ctx context.Context, product *Product) (*Product, error) {
	res, err := r.db.NewUpdate().
		Model(product).
		Column("name", "description", "price", "stock", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrProductNotFound
	}

	return r.GetByID(ctx, product.ID)
}

func (r *products) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProductNotFound
	}
	return nil
}
