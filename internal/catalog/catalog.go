package catalog

import (
	"context"
	"errors"

	"bankpilot.app/concierge/internal/model"
)

// ErrNotFound is returned when a requested product does not exist
var ErrNotFound = errors.New("not found")

// Filter narrows Count to a subset of the catalog. Nil fields are
// unconstrained; matching is case-insensitive on all three dimensions.
type Filter struct {
	Bank        *string
	Category    *string
	ProductName *string
}

// ProductStore defines the contract for product catalog access.
// The router only reads; the ingestion pipeline owns writes.
type ProductStore interface {
	Count(ctx context.Context, f Filter) (int, error)
	List(ctx context.Context, bank, category string) ([]model.Product, error)
	Get(ctx context.Context, bank, name string) (*model.Product, error)
	DistinctBanks(ctx context.Context) ([]string, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	DistinctProductNames(ctx context.Context) ([]string, error)

	// Owners maps each product name to its bank, for inheriting the owning
	// bank when a product is mentioned without one.
	Owners(ctx context.Context) (map[string]string, error)
}
