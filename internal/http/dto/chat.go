package dto

import (
	"time"

	"bankpilot.app/concierge/internal/routing"
)

type ChatRequest struct {
	SessionID string     `json:"session_id" binding:"required"`
	Utterance string     `json:"utterance" binding:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type ChatResponse struct {
	Reply         string              `json:"reply"`
	Operations    []routing.Operation `json:"operations"`
	ClarifyPrompt string              `json:"clarify_prompt,omitempty"`
	Debug         *ChatDebug          `json:"debug,omitempty"`
}

// ChatDebug is only included when the caller asks for it (?debug=1).
type ChatDebug struct {
	Rewritten string           `json:"rewritten,omitempty"`
	Signals   routing.Signals  `json:"signals"`
	Evidence  routing.Evidence `json:"evidence"`
}

type ResetResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type RegistryResponse struct {
	Banks      []string  `json:"banks"`
	Categories []string  `json:"categories"`
	Products   []string  `json:"products"`
	VagueTerms []string  `json:"vague_terms"`
	FetchedAt  time.Time `json:"fetched_at"`
}
