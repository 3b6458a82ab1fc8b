package llm

import (
	"context"
	"fmt"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5-20250514")
}

// TextClient produces free-form prose. Answer composition (EXPLAIN, COMPARE,
// RECOMMEND, FAQ) uses it: the evidence is passed in the prompt and the reply
// is rendered verbatim to the user.
type TextClient interface {
	Complete(ctx context.Context, req TextRequest) (*TextResponse, error)
	Model() string
}

// TextRequest contains the prompts for a completion turn.
type TextRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64
}

// TextResponse contains the completion and token usage.
type TextResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// NewTextClient creates a TextClient for the configured provider.
// Defaults to OpenAI if no provider is specified.
func NewTextClient(cfg Config) (TextClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIText(cfg)
	case ProviderAnthropic:
		return newAnthropicText(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
