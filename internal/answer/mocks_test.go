package answer_test

import (
	"context"
	"encoding/json"

	"bankpilot.app/concierge/common/llm"
	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/faq"
	"bankpilot.app/concierge/internal/model"
)

type mockProductStore struct {
	countFn func(ctx context.Context, f catalog.Filter) (int, error)
	listFn  func(ctx context.Context, bank, category string) ([]model.Product, error)
	getFn   func(ctx context.Context, bank, name string) (*model.Product, error)
}

func (m *mockProductStore) Count(ctx context.Context, f catalog.Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, f)
	}
	return 0, nil
}

func (m *mockProductStore) List(ctx context.Context, bank, category string) ([]model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx, bank, category)
	}
	return nil, nil
}

func (m *mockProductStore) Get(ctx context.Context, bank, name string) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, bank, name)
	}
	return nil, catalog.ErrNotFound
}

func (m *mockProductStore) DistinctBanks(ctx context.Context) ([]string, error) {
	return []string{"SBI", "HDFC"}, nil
}

func (m *mockProductStore) DistinctCategories(ctx context.Context) ([]string, error) {
	// Two card categories, so the bare "cards" tail stays vague here like it
	// is in a real catalog.
	return []string{"Credit Card", "Debit Card", "Home Loan"}, nil
}

func (m *mockProductStore) DistinctProductNames(ctx context.Context) ([]string, error) {
	return []string{"SimplySAVE", "Elite", "Regalia Gold"}, nil
}

func (m *mockProductStore) Owners(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"SimplySAVE":   "SBI",
		"Elite":        "SBI",
		"Regalia Gold": "HDFC",
	}, nil
}

type mockIndex struct {
	topKFn func(ctx context.Context, query, bank string, k int) ([]model.FAQMatch, error)
}

func (m *mockIndex) TopK(ctx context.Context, query, bank string, k int) ([]model.FAQMatch, error) {
	if m.topKFn != nil {
		return m.topKFn(ctx, query, bank, k)
	}
	return nil, nil
}

func (m *mockIndex) Upsert(ctx context.Context, entries []faq.Entry) error {
	return nil
}

type mockTextClient struct {
	completeFn func(ctx context.Context, req llm.TextRequest) (*llm.TextResponse, error)
}

func (m *mockTextClient) Complete(ctx context.Context, req llm.TextRequest) (*llm.TextResponse, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return &llm.TextResponse{Content: "synthesized answer"}, nil
}

func (m *mockTextClient) Model() string { return "mock-text" }

type mockChatClient struct {
	chatFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
}

func (m *mockChatClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, req, result)
	}
	return &llm.Response{}, nil
}

func (m *mockChatClient) Model() string { return "mock-chat" }

// structuredReply fills the handler's result the way the real client does,
// by round-tripping through JSON.
func structuredReply(payload string) func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	return func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
		if err := json.Unmarshal([]byte(payload), result); err != nil {
			return nil, err
		}
		return &llm.Response{}, nil
	}
}

func product(bank, category, name, summary string) model.Product {
	return model.Product{
		BankName:    bank,
		Category:    category,
		ProductName: name,
		SummaryText: summary,
	}
}

func faqHit(sim float64) func(ctx context.Context, query, bank string, k int) ([]model.FAQMatch, error) {
	return func(ctx context.Context, query, bank string, k int) ([]model.FAQMatch, error) {
		return []model.FAQMatch{{
			Similarity: sim,
			Question:   "How do I apply for a credit card?",
			Answer:     "Apply online or visit a branch.",
		}}, nil
	}
}
