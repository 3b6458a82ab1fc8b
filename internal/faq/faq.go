package faq

import (
	"context"

	"bankpilot.app/concierge/internal/model"
)

// Entry is one FAQ document on its way into the index. The router never
// writes; Upsert exists for the ingestion side of the house.
type Entry struct {
	ID       string
	Bank     string
	Category string
	Question string
	Answer   string
}

// Index defines the contract for semantic FAQ lookup.
// Matches come back ordered by similarity, highest first.
type Index interface {
	// TopK returns the k closest FAQ entries to the query. A non-empty bank
	// narrows the search to that bank's entries.
	TopK(ctx context.Context, query, bank string, k int) ([]model.FAQMatch, error)

	Upsert(ctx context.Context, entries []Entry) error
}
