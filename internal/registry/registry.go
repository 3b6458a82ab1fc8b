package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bankpilot.app/concierge/internal/catalog"
)

// Entity is one known bank, category, or product with its canonical spelling
// and the lowercase aliases it can be matched under.
type Entity struct {
	Canonical string
	Aliases   []string
}

// Snapshot is an immutable view of the entity registry. Banks and categories
// are exactly the distinct values in the product store, never hardcoded.
type Snapshot struct {
	Banks      []Entity
	Categories []Entity
	Products   []Entity

	// ProductOwner maps canonical product name to its canonical bank, so a
	// product matched without a bank inherits the owning bank.
	ProductOwner map[string]string

	// VagueTerms are tokens shared by multiple categories ("cards", "loan");
	// a bare vague term cannot resolve a category and triggers clarification.
	VagueTerms map[string]bool

	FetchedAt time.Time
}

// Empty reports whether ingestion has produced no entities yet.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Banks) == 0
}

// Registry caches the entity sets drawn from the product store. Rebuilds are
// guarded by singleflight so concurrent first-callers do not stampede the
// store; the ingestion consumer calls Invalidate when the catalog changes.
type Registry struct {
	store catalog.ProductStore
	ttl   time.Duration

	mu    sync.RWMutex
	snap  *Snapshot
	group singleflight.Group
}

func New(store catalog.ProductStore, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl}
}

// Snapshot returns the cached entity sets, rebuilding from the product store
// when the cache is stale or was invalidated.
func (r *Registry) Snapshot(ctx context.Context) (*Snapshot, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()

	if snap != nil && time.Since(snap.FetchedAt) < r.ttl {
		return snap, nil
	}

	v, err, _ := r.group.Do("rebuild", func() (any, error) {
		// Re-check under the flight: another caller may have just rebuilt.
		r.mu.RLock()
		cur := r.snap
		r.mu.RUnlock()
		if cur != nil && time.Since(cur.FetchedAt) < r.ttl {
			return cur, nil
		}

		fresh, err := r.rebuild(ctx)
		if err != nil {
			// Serve the stale snapshot rather than failing the turn.
			if cur != nil {
				slog.WarnContext(ctx, "registry rebuild failed, serving stale snapshot",
					"error", err, "age", time.Since(cur.FetchedAt))
				return cur, nil
			}
			return nil, err
		}

		r.mu.Lock()
		r.snap = fresh
		r.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot so the next caller rebuilds.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.snap = nil
	r.mu.Unlock()
}

func (r *Registry) rebuild(ctx context.Context) (*Snapshot, error) {
	banks, err := r.store.DistinctBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading banks: %w", err)
	}
	categories, err := r.store.DistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	names, err := r.store.DistinctProductNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading product names: %w", err)
	}

	owners, err := r.store.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading product owners: %w", err)
	}

	snap := buildSnapshot(banks, categories, names)
	snap.ProductOwner = owners

	slog.InfoContext(ctx, "entity registry rebuilt",
		"banks", len(snap.Banks),
		"categories", len(snap.Categories),
		"products", len(snap.Products))

	return snap, nil
}
