package faq

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"

	"bankpilot.app/concierge/common/llm"
	"bankpilot.app/concierge/internal/model"
)

// chromemIndex stores FAQ embeddings in an embedded chromem-go collection.
// Similarity is cosine, higher means more relevant, so the routing threshold
// applies without inversion. Single-process and memory-bound, which matches
// the FAQ corpus size here (hundreds of entries, not millions).
type chromemIndex struct {
	db          *chromem.DB
	col         *chromem.Collection
	embedder    llm.Embedder
	persistPath string
}

type Config struct {
	// PersistPath for file persistence. If empty, vectors live in memory only.
	PersistPath string
	Collection  string
}

// NewChromemIndex creates an Index backed by chromem-go, loading an existing
// database from PersistPath when one exists.
func NewChromemIndex(cfg Config, embedder llm.Embedder) (Index, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating persist directory: %w", err)
		}

		dbPath := filepath.Join(cfg.PersistPath, "faq.gob")
		if _, statErr := os.Stat(dbPath); statErr == nil {
			db, err = chromem.NewPersistentDB(dbPath, false)
			if err != nil {
				return nil, fmt.Errorf("loading faq index: %w", err)
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "banking_faqs"
	}

	// Embeddings are computed externally; chromem must never call this.
	noEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors are pre-computed")
	}

	col, err := db.GetOrCreateCollection(collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collection, err)
	}

	return &chromemIndex{
		db:          db,
		col:         col,
		embedder:    embedder,
		persistPath: cfg.PersistPath,
	}, nil
}

func (x *chromemIndex) TopK(ctx context.Context, query, bank string, k int) ([]model.FAQMatch, error) {
	if x.col.Count() == 0 {
		return nil, nil
	}

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var where map[string]string
	if bank != "" {
		where = map[string]string{"bank": bank}
	}

	if n := x.col.Count(); k > n {
		k = n
	}

	results, err := x.col.QueryEmbedding(ctx, vec, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying faq index: %w", err)
	}

	matches := make([]model.FAQMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, model.FAQMatch{
			Similarity: float64(r.Similarity),
			Bank:       r.Metadata["bank"],
			Category:   r.Metadata["category"],
			Question:   r.Metadata["question"],
			Answer:     r.Content,
		})
	}
	return matches, nil
}

func (x *chromemIndex) Upsert(ctx context.Context, entries []Entry) error {
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		vec, err := x.embedder.Embed(ctx, e.Question)
		if err != nil {
			return fmt.Errorf("embedding %q: %w", e.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:      e.ID,
			Content: e.Answer,
			Metadata: map[string]string{
				"bank":     e.Bank,
				"category": e.Category,
				"question": e.Question,
			},
			Embedding: vec,
		})
	}

	if err := x.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("upserting faq documents: %w", err)
	}

	return x.persist()
}

func (x *chromemIndex) persist() error {
	if x.persistPath == "" {
		return nil
	}
	dbPath := filepath.Join(x.persistPath, "faq.gob")
	if err := x.db.Export(dbPath, false, ""); err != nil {
		return fmt.Errorf("persisting faq index: %w", err)
	}
	return nil
}
