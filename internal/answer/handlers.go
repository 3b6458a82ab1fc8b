package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bankpilot.app/concierge/common/llm"
	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/model"
	"bankpilot.app/concierge/internal/routing"
)

// count answers from the evidence snapshot; the validator already confirmed
// the figure against the catalog, so no second query is needed.
func (s *Service) count(op routing.Operation) string {
	n := op.Evidence.DBCount
	scope := op.Scope

	switch {
	case scope.Bank != "" && scope.Category != "":
		return fmt.Sprintf("%s offers %d %s products.", scope.Bank, n, strings.ToLower(scope.Category))
	case scope.Bank != "":
		return fmt.Sprintf("%s offers %d products in total.", scope.Bank, n)
	case scope.Category != "":
		return fmt.Sprintf("There are %d %s products across all banks.", n, strings.ToLower(scope.Category))
	default:
		return fmt.Sprintf("I count %d matching products.", n)
	}
}

func (s *Service) list(ctx context.Context, sessionID string, op routing.Operation) (string, error) {
	products, err := s.store.List(ctx, op.Scope.Bank, op.Scope.Category)
	if err != nil {
		return "", fmt.Errorf("listing products: %w", err)
	}
	if len(products) == 0 {
		return fmt.Sprintf("I couldn't find any %s products from %s.",
			strings.ToLower(orAny(op.Scope.Category)), op.Scope.Bank), nil
	}

	names := make([]string, len(products))
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s products (%d):\n", op.Scope.Bank, strings.ToLower(orAny(op.Scope.Category)), len(products))
	for i, p := range products {
		names[i] = p.ProductName
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.ProductName)
	}

	// The ordered names become the session's product list, so ordinal
	// follow-ups resolve against exactly what the user saw.
	s.router.Sessions().SetProductList(sessionID, names)

	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Service) explain(ctx context.Context, op routing.Operation) (string, error) {
	p, err := s.store.Get(ctx, op.Scope.Bank, op.Scope.ProductName)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Sprintf("I don't have details for %s from %s.", op.Scope.ProductName, op.Scope.Bank), nil
		}
		return "", fmt.Errorf("loading product: %w", err)
	}

	prompt := fmt.Sprintf("Product: %s (%s, %s)\n%s\n\nQuestion: %s",
		p.ProductName, p.BankName, p.Category, productContext(p), op.Utterance)

	return s.synthesize(ctx,
		"You are a banking products assistant. Explain the product below clearly and concisely using only the provided facts.",
		prompt)
}

func (s *Service) explainAll(ctx context.Context, op routing.Operation) (string, error) {
	products, err := s.store.List(ctx, op.Scope.Bank, op.Scope.Category)
	if err != nil {
		return "", fmt.Errorf("listing products: %w", err)
	}
	if len(products) == 0 {
		return fmt.Sprintf("I couldn't find any %s products from %s.",
			strings.ToLower(orAny(op.Scope.Category)), op.Scope.Bank), nil
	}

	prompt := fmt.Sprintf("%s\n\nQuestion: %s", productsContext(products), op.Utterance)

	return s.synthesize(ctx,
		"You are a banking products assistant. Give a short description of each product below, one paragraph per product, using only the provided facts.",
		prompt)
}

func (s *Service) compare(ctx context.Context, op routing.Operation) (string, error) {
	var sections []string
	for _, bank := range op.Scope.Banks() {
		products, err := s.store.List(ctx, bank, op.Scope.Category)
		if err != nil {
			return "", fmt.Errorf("listing %s products: %w", bank, err)
		}
		sections = append(sections, fmt.Sprintf("## %s\n%s", bank, productsContext(products)))
	}

	prompt := fmt.Sprintf("%s\n\nQuestion: %s", strings.Join(sections, "\n\n"), op.Utterance)

	return s.synthesize(ctx,
		"You are a banking products assistant. Compare the banks' offerings below side by side, then summarize the key differences. Use only the provided facts.",
		prompt)
}

type recommendation struct {
	ProductName string `json:"product_name" jsonschema_description:"Exact name of the single recommended product"`
	Answer      string `json:"answer" jsonschema_description:"Recommendation with a short justification"`
}

var recommendationSchema = llm.GenerateSchema[recommendation]()

func (s *Service) recommend(ctx context.Context, sessionID string, op routing.Operation) (string, error) {
	products, err := s.store.List(ctx, op.Scope.Bank, op.Scope.Category)
	if err != nil {
		return "", fmt.Errorf("listing products: %w", err)
	}
	if len(products) == 0 {
		return fmt.Sprintf("I couldn't find any %s products from %s to recommend.",
			strings.ToLower(orAny(op.Scope.Category)), op.Scope.Bank), nil
	}

	req := llm.Request{
		SystemPrompt: "You are a banking products assistant. Pick the single most suitable product for the user's question from the provided list and justify the choice briefly. Use only the provided facts.",
		UserPrompt:   fmt.Sprintf("%s\n\nQuestion: %s", productsContext(products), op.Utterance),
		SchemaName:   "recommendation",
		Schema:       recommendationSchema,
		MaxTokens:    s.maxTokens,
		Temperature:  llm.Temp(0.2),
	}

	var rec recommendation
	_, err = s.chat.Chat(ctx, req, &rec)
	if err != nil && llm.IsRetryable(ctx, err) {
		_, err = s.chat.Chat(ctx, req, &rec)
	}
	if err != nil {
		return "", fmt.Errorf("recommendation: %w", err)
	}

	// Anchor "why?" follow-ups to the pick.
	s.router.Sessions().SetRecommended(sessionID, rec.ProductName)

	return rec.Answer, nil
}

func (s *Service) faq(ctx context.Context, op routing.Operation) (string, error) {
	match := op.Evidence.FAQTopMatch
	if match == nil {
		return s.fallback(ctx, op)
	}

	reply, err := s.synthesize(ctx,
		"You are a banking products assistant. Answer the user's question using only the FAQ entry below. Keep the answer short and procedural.",
		fmt.Sprintf("FAQ: %s\nAnswer: %s\n\nQuestion: %s", match.Question, match.Answer, op.Utterance))
	if err != nil {
		// The stored answer is still a correct reply on its own.
		return match.Answer, nil
	}
	return reply, nil
}

func (s *Service) fallback(ctx context.Context, op routing.Operation) (string, error) {
	return s.synthesize(ctx,
		"You are a friendly banking products assistant. The question did not match any catalog or FAQ entry; reply helpfully and steer the user toward banks, product categories, or procedures you can answer about.",
		op.Utterance)
}

// synthesize runs a completion with one retry on retryable errors.
func (s *Service) synthesize(ctx context.Context, system, prompt string) (string, error) {
	req := llm.TextRequest{
		SystemPrompt: system,
		UserPrompt:   prompt,
		MaxTokens:    s.maxTokens,
		Temperature:  llm.Temp(0.3),
	}

	resp, err := s.text.Complete(ctx, req)
	if err != nil && llm.IsRetryable(ctx, err) {
		resp, err = s.text.Complete(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("llm synthesis: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func productContext(p *model.Product) string {
	var b strings.Builder
	if p.SummaryText != "" {
		b.WriteString(p.SummaryText)
	}
	for k, v := range p.Attributes {
		fmt.Fprintf(&b, "\n- %s: %v", k, v)
	}
	return b.String()
}

func productsContext(products []model.Product) string {
	sections := make([]string, len(products))
	for i := range products {
		p := products[i]
		sections[i] = fmt.Sprintf("### %s\n%s", p.ProductName, productContext(&p))
	}
	return strings.Join(sections, "\n\n")
}

func orAny(category string) string {
	if category == "" {
		return "banking"
	}
	return category
}
