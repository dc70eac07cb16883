package storefront

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CatalogService manages products. Role checks happen before it is
// called.
type CatalogService struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// CatalogOption customizes the catalog service
type CatalogOption func(*CatalogService)

// WithCatalogClock injects a custom clock
func WithCatalogClock(clock func() time.Time) CatalogOption {
	return func(c *CatalogService) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithCatalogLogger sets the logger
func WithCatalogLogger(logger Logger) CatalogOption {
	return func(c *CatalogService) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCatalogActivitySink sets the audit sink
func WithCatalogActivitySink(sink ActivitySink) CatalogOption {
	return func(c *CatalogService) {
		c.activity = normalizeActivitySink(sink)
	}
}

// NewCatalogService returns a CatalogService
func NewCatalogService(repo RepositoryManager, opts ...CatalogOption) *CatalogService {
	c := &CatalogService{
		repo:     repo,
		logger:   defLogger(),
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *CatalogService) recorder() activityRecorder {
	return activityRecorder{sink: c.activity, logger: c.logger, now: c.now}
}

// List returns every product, oldest first
func (c *CatalogService) List(ctx context.Context) ([]*Product, error) {
	return c.repo.Products().List(ctx)
}

// Get returns a product. Ids that do not parse are reported as not found.
func (c *CatalogService) Get(ctx context.Context, id string) (*Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	return c.repo.Products().GetByID(ctx, pid)
}

func (c *CatalogService) Create(ctx context.Context, actor *Account, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := c.now()
	product := &Product{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(product)

	created, err := c.repo.Products().Create(ctx, product)
	if err != nil {
		return nil, err
	}

	c.recorder().emit(ctx, ActivityEventProductCreated, actorID(actor), map[string]any{
		"product_id": created.ID.String(),
	})

	return created, nil
}

// Update replaces all editable fields of the product.
func (c *CatalogService) Update(ctx context.Context, actor *Account, id string, in ProductInput) (*Product, error) {
	existing, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}

	in.apply(existing)
	existing.UpdatedAt = c.now()

	updated, err := c.repo.Products().Update(ctx, existing)
	if err != nil {
		return nil, err
	}

	c.recorder().emit(ctx, ActivityEventProductUpdated, actorID(actor), map[string]any{
		"product_id": updated.ID.String(),
	})

	return updated, nil
}

func (c *CatalogService) Delete(ctx context.Context, actor *Account, id string) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ErrProductNotFound
	}

	if err := c.repo.Products().Delete(ctx, pid); err != nil {
		return err
	}

	c.recorder().emit(ctx, ActivityEventProductDeleted, actorID(actor), map[string]any{
		"product_id": pid.String(),
	})
	return nil
}

func actorID(a *Account) string {
	if a == nil {
		return ""
	}
	return a.ID.String()
}
