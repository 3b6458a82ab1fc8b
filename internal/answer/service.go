package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bankpilot.app/concierge/common/id"
	"bankpilot.app/concierge/common/llm"
	"bankpilot.app/concierge/common/logger"
	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/routing"
)

const greetingReply = "Hello! Ask me about banking products — counts, lists, comparisons, recommendations, or how-to questions."

// Service executes routing decisions. COUNT and LIST are answered
// deterministically from the catalog; the synthesis operations go through
// the LLM with catalog rows or the FAQ match as context.
type Service struct {
	router *routing.Router
	store  catalog.ProductStore
	text   llm.TextClient
	chat   llm.Client

	maxTokens int
}

// Result is one answered turn.
type Result struct {
	Reply    string
	Decision routing.Decision
}

func NewService(router *routing.Router, store catalog.ProductStore, text llm.TextClient, chat llm.Client, maxTokens int) *Service {
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &Service{
		router:    router,
		store:     store,
		text:      text,
		chat:      chat,
		maxTokens: maxTokens,
	}
}

// Answer routes and executes one utterance. The session lock is held for the
// whole turn so utterances within a session are processed strictly in
// arrival order and the post-execution product-list commit is ordered with
// the routing commit.
func (s *Service) Answer(ctx context.Context, sessionID, utterance string) (*Result, error) {
	sid := sessionID
	turnID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: &sid, TurnID: &turnID})

	unlock := s.router.Sessions().Lock(sessionID)
	defer unlock()

	decision := s.router.Route(ctx, sessionID, utterance)

	if decision.Greeting {
		return &Result{Reply: greetingReply, Decision: decision}, nil
	}
	if decision.IsClarify() {
		return &Result{Reply: decision.ClarifyPrompt, Decision: decision}, nil
	}

	parts := make([]string, 0, len(decision.Operations))
	for _, op := range decision.Operations {
		reply, err := s.execute(ctx, sessionID, op)
		if err != nil {
			slog.ErrorContext(ctx, "operation handler failed",
				"tag", op.Tag, "error", err)
			reply = "Sorry, I couldn't finish answering that part. Please try again."
		}
		parts = append(parts, reply)
	}

	return &Result{
		Reply:    strings.Join(parts, "\n\n"),
		Decision: decision,
	}, nil
}

// Reset clears a conversation ("new conversation").
func (s *Service) Reset(sessionID string) {
	s.router.Sessions().Reset(sessionID)
}

func (s *Service) execute(ctx context.Context, sessionID string, op routing.Operation) (string, error) {
	switch op.Tag {
	case routing.OpCount:
		return s.count(op), nil
	case routing.OpList:
		return s.list(ctx, sessionID, op)
	case routing.OpExplain:
		return s.explain(ctx, op)
	case routing.OpExplainAll:
		return s.explainAll(ctx, op)
	case routing.OpCompare:
		return s.compare(ctx, op)
	case routing.OpRecommend:
		return s.recommend(ctx, sessionID, op)
	case routing.OpFAQ:
		return s.faq(ctx, op)
	case routing.OpLLMFallback:
		return s.fallback(ctx, op)
	default:
		return "", fmt.Errorf("unhandled operation %q", op.Tag)
	}
}
