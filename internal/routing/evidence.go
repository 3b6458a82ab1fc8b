package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/faq"
	"bankpilot.app/concierge/internal/model"
)

// UnknownCount is the sentinel for "the catalog did not answer": the scope
// was under-specified or the backend timed out. The validator must never
// route to COUNT on it.
const UnknownCount = -1

// Retriever gathers evidence for one utterance: an exact count from the
// product store and the top FAQ match, issued concurrently. Each backend
// call carries its own deadline; a transient failure is retried once after a
// short backoff, then reduced to a sentinel so routing always proceeds.
type Retriever struct {
	store   catalog.ProductStore
	index   faq.Index
	timeout time.Duration
	backoff time.Duration
}

func NewRetriever(store catalog.ProductStore, index faq.Index, timeout, backoff time.Duration) *Retriever {
	return &Retriever{
		store:   store,
		index:   index,
		timeout: timeout,
		backoff: backoff,
	}
}

// Retrieve joins both backends before returning. It never returns an error:
// failures become sentinel evidence.
func (r *Retriever) Retrieve(ctx context.Context, scope Scope, utterance string) Evidence {
	ev := Evidence{DBCount: UnknownCount}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ev.DBCount = r.count(ctx, scope)
	}()

	go func() {
		defer wg.Done()
		ev.FAQTopSimilarity, ev.FAQTopMatch = r.topFAQ(ctx, utterance, scope.Bank)
	}()

	wg.Wait()
	return ev
}

func (r *Retriever) count(ctx context.Context, scope Scope) int {
	// Under-specified scope: counting the whole catalog would let a bare
	// count cue route to COUNT, so the count is omitted instead.
	if scope.Bank == "" && scope.Category == "" && scope.ProductName == "" {
		return UnknownCount
	}

	f := catalog.Filter{}
	if scope.Bank != "" {
		f.Bank = &scope.Bank
	}
	if scope.Category != "" {
		f.Category = &scope.Category
	}
	if scope.ProductName != "" {
		f.ProductName = &scope.ProductName
	}

	count, err := withRetry(ctx, r.timeout, r.backoff, func(ctx context.Context) (int, error) {
		return r.store.Count(ctx, f)
	})
	if err != nil {
		slog.WarnContext(ctx, "catalog count unavailable, substituting sentinel", "error", err)
		return UnknownCount
	}
	return count
}

func (r *Retriever) topFAQ(ctx context.Context, utterance, bank string) (float64, *model.FAQMatch) {
	matches, err := withRetry(ctx, r.timeout, r.backoff, func(ctx context.Context) ([]model.FAQMatch, error) {
		return r.index.TopK(ctx, utterance, bank, 1)
	})
	if err != nil {
		slog.WarnContext(ctx, "faq lookup unavailable, substituting sentinel", "error", err)
		return 0, nil
	}
	if len(matches) == 0 {
		return 0, nil
	}
	top := matches[0]
	return top.Similarity, &top
}

// withRetry runs fn under the per-attempt deadline, retrying once after the
// backoff on any failure. Cancellation of the parent context stops the retry.
func withRetry[T any](ctx context.Context, timeout, backoff time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(attemptCtx)
	}

	v, err := attempt()
	if err == nil {
		return v, nil
	}
	if ctx.Err() != nil {
		return v, err
	}

	select {
	case <-ctx.Done():
		return v, ctx.Err()
	case <-time.After(backoff):
	}

	return attempt()
}
