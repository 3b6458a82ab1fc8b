package routing

import "bankpilot.app/concierge/internal/model"

// OpTag identifies the handler an operation is dispatched to.
type OpTag string

const (
	OpCount       OpTag = "COUNT"
	OpList        OpTag = "LIST"
	OpExplain     OpTag = "EXPLAIN"
	OpExplainAll  OpTag = "EXPLAIN_ALL"
	OpCompare     OpTag = "COMPARE"
	OpRecommend   OpTag = "RECOMMEND"
	OpFAQ         OpTag = "FAQ"
	OpClarify     OpTag = "CLARIFY"
	OpLLMFallback OpTag = "LLM_FALLBACK"
)

// Scope is the (bank, category, product) triple resolved from the utterance
// against the live entity registry. Derived per utterance, never mutated.
type Scope struct {
	Bank        string   `json:"bank,omitempty"`
	Category    string   `json:"category,omitempty"`
	ProductName string   `json:"product_name,omitempty"`
	AltBanks    []string `json:"alt_banks,omitempty"`

	// Strength: 0 when nothing resolved, 0.5 when exactly one of bank and
	// category resolved, 1.0 when both. Product name is a bonus.
	Strength float64 `json:"strength"`
}

// Banks returns the primary bank followed by any alternates.
func (s Scope) Banks() []string {
	if s.Bank == "" {
		return nil
	}
	return append([]string{s.Bank}, s.AltBanks...)
}

// Signals are the lexical cues extracted from the utterance. A signal is a
// hint, never decisive on its own; the validator checks each against
// evidence before committing.
type Signals struct {
	Count      bool `json:"count"`
	List       bool `json:"list"`
	Explain    bool `json:"explain"`
	ExplainAll bool `json:"explain_all"`
	Compare    bool `json:"compare"`
	Recommend  bool `json:"recommend"`

	// NonProductTargets are the procedural nouns ("steps", "documents") that
	// turn an apparent quantity question into a how-to question.
	NonProductTargets []string `json:"non_product_targets,omitempty"`

	HasConjunction bool `json:"has_conjunction"`

	// Byte offsets of the first clause-separating conjunction, for the
	// multi-operation splitter. conjStart == -1 when absent.
	conjStart int
	conjEnd   int
}

// Evidence holds the measured facts about the utterance's target: the exact
// catalog count under the resolved scope and the best FAQ match. DBCount is
// -1 when the scope is under-specified or the backend did not answer in time.
type Evidence struct {
	DBCount          int             `json:"db_count"`
	FAQTopSimilarity float64         `json:"faq_top_similarity"`
	FAQTopMatch      *model.FAQMatch `json:"faq_top_match,omitempty"`
}

// Operation is one dispatched unit of work: the tag, the scope it runs
// under, the evidence snapshot that justified it, and the clause text the
// handler should answer.
type Operation struct {
	Tag       OpTag    `json:"tag"`
	Scope     Scope    `json:"scope"`
	Evidence  Evidence `json:"evidence"`
	Utterance string   `json:"utterance"`

	// SuppressGreeting is set on the second operation of a multi-op decision
	// so its handler skips boilerplate.
	SuppressGreeting bool `json:"suppress_greeting,omitempty"`
}

// Decision is the router's output for one utterance: one or two ordered
// operations, or a clarification. If ClarifyPrompt is set, Operations
// contains only CLARIFY and nothing is committed to session state.
type Decision struct {
	Operations    []Operation `json:"operations"`
	ClarifyPrompt string      `json:"clarify_prompt,omitempty"`

	// Greeting short-circuits everything: canned reply, no state touched.
	Greeting bool `json:"greeting,omitempty"`

	// Rewritten is the follow-up resolver's output when it rewrote the
	// utterance; empty when the input passed through unchanged.
	Rewritten string  `json:"rewritten,omitempty"`
	Signals   Signals `json:"signals"`
	Evidence  Evidence `json:"evidence"`
}

// IsClarify reports whether the decision terminates in a clarification.
func (d Decision) IsClarify() bool {
	return d.ClarifyPrompt != ""
}

func clarifyDecision(prompt string) Decision {
	return Decision{
		Operations:    []Operation{{Tag: OpClarify}},
		ClarifyPrompt: prompt,
	}
}
