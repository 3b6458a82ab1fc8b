package routing

import (
	"context"
	"log/slog"
	"strings"

	"bankpilot.app/concierge/common/logger"
	"bankpilot.app/concierge/core/config"
	"bankpilot.app/concierge/internal/registry"
	"bankpilot.app/concierge/internal/session"
)

// Router is the facade over the whole pipeline: greeting short-circuit,
// follow-up rewriting, scope resolution, signal extraction, evidence
// retrieval, validation, and the post-decision session commit. It never
// returns an error to its caller; every failure is reduced to a routing
// decision.
type Router struct {
	registry  *registry.Registry
	sessions  *session.Manager
	retriever *Retriever

	greetings    map[string]bool
	faqThreshold float64
}

func NewRouter(reg *registry.Registry, sessions *session.Manager, retriever *Retriever, cfg config.RoutingConfig) *Router {
	greetings := make(map[string]bool, len(cfg.Greetings))
	for _, g := range cfg.Greetings {
		greetings[strings.ToLower(g)] = true
	}
	return &Router{
		registry:     reg,
		sessions:     sessions,
		retriever:    retriever,
		greetings:    greetings,
		faqThreshold: cfg.FAQThreshold,
	}
}

// Sessions exposes the conversation state for the answer layer's
// post-execution commits.
func (r *Router) Sessions() *session.Manager {
	return r.sessions
}

// Route decides how one utterance is served. The caller must hold the
// session lock for the duration of the turn so commits are ordered.
func (r *Router) Route(ctx context.Context, sessionID, utterance string) Decision {
	trimmed := strings.TrimSpace(utterance)

	// Greetings short-circuit before anything else and never touch state.
	if r.greetings[strings.Trim(strings.ToLower(trimmed), " !.?,")] {
		return Decision{Greeting: true}
	}

	snap, err := r.registry.Snapshot(ctx)
	if err != nil || snap.Empty() {
		if err != nil {
			slog.WarnContext(ctx, "entity registry unavailable", "error", err)
		} else {
			slog.WarnContext(ctx, "entity registry empty, ingestion incomplete")
		}
		return clarifyDecision(promptIngestionIncomplete())
	}

	last := r.sessions.Last(sessionID)

	working := trimmed
	var forced OpTag
	var rewritten, rewriteProduct string
	if rw := ResolveFollowup(trimmed, last, snap); rw != nil {
		if rw.ClarifyPrompt != "" {
			r.sessions.Touch(sessionID)
			return clarifyDecision(rw.ClarifyPrompt)
		}
		working = rw.Utterance
		rewritten = rw.Utterance
		forced = rw.ForcedOp
		rewriteProduct = rw.Product
		ctx = logger.WithLogFields(ctx, logger.LogFields{RoutingPath: logger.String("FOLLOWUP")})
	}

	scope := ResolveScope(working, snap)

	// The rewrite's product reference is authoritative: session lists can
	// carry names the registry snapshot has not caught up with yet.
	if rewriteProduct != "" && scope.ProductName == "" {
		scope.ProductName = rewriteProduct
		if scope.Bank == "" {
			if owner, ok := snap.ProductOwner[rewriteProduct]; ok {
				scope.Bank = owner
			} else if last != nil {
				scope.Bank = last.Bank
			}
		}
		scope.Strength = strength(scope)
	}
	signals := ExtractSignals(working)
	evidence := r.retriever.Retrieve(ctx, scope, working)

	var decision Decision
	if forced != "" {
		decision = Decision{
			Operations: []Operation{{
				Tag:       forced,
				Scope:     scope,
				Evidence:  evidence,
				Utterance: working,
			}},
		}
	} else {
		contextBank := ""
		if last != nil {
			contextBank = last.Bank
		}
		decision = Validate(ValidatorInput{
			Utterance:    working,
			Scope:        scope,
			Signals:      signals,
			Evidence:     evidence,
			ContextBank:  contextBank,
			Registry:     snap,
			FAQThreshold: r.faqThreshold,
		})
	}

	decision.Rewritten = rewritten
	decision.Signals = signals
	decision.Evidence = evidence

	intent := string(decision.Operations[0].Tag)
	ctx = logger.WithLogFields(ctx, logger.LogFields{Intent: &intent})
	slog.InfoContext(ctx, "routing decision",
		"utterance", trimmed,
		"rewritten", rewritten,
		"signals", signals,
		"evidence", map[string]any{
			"db_count":           evidence.DBCount,
			"faq_top_similarity": evidence.FAQTopSimilarity,
		},
		"operations", len(decision.Operations))

	// A request that already blew its deadline must not commit partial
	// state; apologize instead.
	if ctx.Err() != nil {
		return clarifyDecision(promptTimeoutApology())
	}

	if decision.IsClarify() {
		r.sessions.Touch(sessionID)
		return decision
	}

	r.commit(sessionID, decision, trimmed, last)
	return decision
}

// commit atomically replaces the session's LastTurn. Product lists are
// produced by the LIST handler after execution; ordinal chains keep working
// across EXPLAIN turns because the previous list is carried forward.
func (r *Router) commit(sessionID string, decision Decision, original string, last *session.LastTurn) {
	op := decision.Operations[0]

	turn := session.LastTurn{
		Intent:    string(op.Tag),
		Bank:      op.Scope.Bank,
		Category:  op.Scope.Category,
		Utterance: original,
	}

	switch op.Tag {
	case OpExplain:
		turn.Explained = op.Scope.ProductName
		if last != nil {
			turn.ProductList = last.ProductList
		}
	case OpCompare:
		turn.Compared = op.Scope.Banks()
	case OpRecommend, OpFAQ, OpExplainAll, OpLLMFallback:
		if last != nil {
			turn.ProductList = last.ProductList
		}
	}

	if turn.Bank == "" && last != nil {
		turn.Bank = last.Bank
	}
	if turn.Category == "" && last != nil {
		turn.Category = last.Category
	}

	r.sessions.Commit(sessionID, turn)
}
