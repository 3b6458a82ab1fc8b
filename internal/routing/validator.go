package routing

import (
	"strings"

	"bankpilot.app/concierge/internal/registry"
)

// ValidatorInput is everything the operation validator weighs: the utterance
// (possibly rewritten), the resolved scope, the extracted signals, the
// gathered evidence, and the conversation-context bank for the smart fork.
type ValidatorInput struct {
	Utterance   string
	Scope       Scope
	Signals     Signals
	Evidence    Evidence
	ContextBank string

	Registry     *registry.Snapshot
	FAQThreshold float64
}

// Validate combines signals, entities, and evidence into an ordered
// operation list. The rules run top to bottom with early return; a signal
// alone never decides, it must survive its evidence check.
func Validate(in ValidatorInput) Decision {
	snap := in.Registry

	if snap.Empty() {
		return clarifyDecision(promptIngestionIncomplete())
	}

	// Two banks without a compare or recommend cue is ambiguous; name both
	// rather than guess.
	if len(in.Scope.AltBanks) > 0 && !in.Signals.Compare && !in.Signals.Recommend {
		return clarifyDecision(promptAmbiguousBanks(in.Scope.Banks()))
	}

	// Rule 1: non-product target override. A procedural noun turns the
	// question into an FAQ; with a conjunction and a product-targeted count
	// clause it becomes the one multi-op form, [COUNT, FAQ].
	if len(in.Signals.NonProductTargets) > 0 {
		if ops, ok := in.splitCountFAQ(); ok {
			return Decision{Operations: ops, Signals: in.Signals, Evidence: in.Evidence}
		}
		return in.decide(Operation{
			Tag:       OpFAQ,
			Scope:     in.Scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}

	// Rule 2: compare/recommend shadow count. "which SBI card is best" does
	// not want a number.
	if (in.Signals.Compare || in.Signals.Recommend) && in.Scope.Category != "" && in.Scope.Bank != "" {
		tag := OpRecommend
		if in.Signals.Compare {
			if len(in.Scope.AltBanks) == 0 {
				// Lone bank in a compare: describe that bank's lineup
				// instead of refusing.
				tag = OpExplainAll
			} else {
				tag = OpCompare
			}
		}
		return in.decide(Operation{
			Tag:       tag,
			Scope:     in.Scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}

	// Rule 3: explicit COUNT, only when the catalog confirms there is
	// something to count under a resolved scope.
	if in.Signals.Count && in.Evidence.DBCount >= 1 && in.Scope.Strength >= 0.5 {
		return in.decide(Operation{
			Tag:       OpCount,
			Scope:     in.Scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}

	// Rule 4: explicit LIST. A list always needs a bank; a resolved category
	// alone is not enough. Like the smart fork, the bank may be inherited
	// from conversation context. The category may be absent, which lists the
	// bank's whole lineup.
	if in.Signals.List {
		bank := in.Scope.Bank
		if bank == "" {
			bank = in.ContextBank
		}
		if bank == "" {
			return clarifyDecision(promptMissingBank(snap))
		}
		if in.Scope.Category == "" && in.Scope.Strength < 0.5 {
			return clarifyDecision(promptMissingCategory(snap))
		}
		if in.Evidence.DBCount >= 1 {
			scope := in.Scope
			scope.Bank = bank
			scope.Strength = strength(scope)
			return in.decide(Operation{
				Tag:       OpList,
				Scope:     scope,
				Evidence:  in.Evidence,
				Utterance: in.Utterance,
			})
		}
	}

	// Rule 5: implicit LIST, the smart fork. A bare category promotes to
	// LIST when a bank is available, either from the utterance or inherited
	// from conversation context.
	if !in.Signals.any() && in.Scope.Category != "" {
		bank := in.Scope.Bank
		if bank == "" {
			bank = in.ContextBank
		}
		if bank == "" {
			return clarifyDecision(promptMissingBank(snap))
		}
		scope := in.Scope
		scope.Bank = bank
		scope.Strength = strength(scope)
		return in.decide(Operation{
			Tag:       OpList,
			Scope:     scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}

	// Rule 6: EXPLAIN / EXPLAIN_ALL.
	if in.Signals.ExplainAll && in.Scope.Category != "" {
		return in.decide(Operation{
			Tag:       OpExplainAll,
			Scope:     in.Scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}
	if in.Signals.Explain && in.Scope.ProductName != "" {
		return in.decide(Operation{
			Tag:       OpExplain,
			Scope:     in.Scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}

	// Rule 7: FAQ by evidence alone.
	if in.Evidence.FAQTopSimilarity >= in.FAQThreshold {
		return in.decide(Operation{
			Tag:       OpFAQ,
			Scope:     in.Scope,
			Evidence:  in.Evidence,
			Utterance: in.Utterance,
		})
	}

	// Rule 8: bare bank, bare category fragment, or a vague registry term.
	if !in.Signals.any() {
		if in.Scope.Strength == 0.5 {
			if in.Scope.Category == "" {
				return clarifyDecision(promptMissingCategory(snap))
			}
			return clarifyDecision(promptMissingBank(snap))
		}
		if containsVagueTerm(in.Utterance, snap) {
			return clarifyDecision(promptVague())
		}
	}

	// Rule 9: nothing matched; let the LLM hold the conversation.
	return in.decide(Operation{
		Tag:       OpLLMFallback,
		Scope:     in.Scope,
		Evidence:  in.Evidence,
		Utterance: in.Utterance,
	})
}

func (in ValidatorInput) decide(op Operation) Decision {
	return Decision{
		Operations: []Operation{op},
		Signals:    in.Signals,
		Evidence:   in.Evidence,
	}
}

// splitCountFAQ builds the [COUNT, FAQ] pair for rule 1. It only fires when
// the conjunction separates a product-targeted count clause from a
// procedural clause, both non-empty, and the catalog confirms the count.
func (in ValidatorInput) splitCountFAQ() ([]Operation, bool) {
	if !in.Signals.HasConjunction || !in.Signals.Count {
		return nil, false
	}

	first, second := in.Signals.Clauses(in.Utterance)
	if first == "" || second == "" {
		return nil, false
	}

	firstSignals := ExtractSignals(first)
	if !firstSignals.Count || len(firstSignals.NonProductTargets) > 0 {
		return nil, false
	}

	countScope := ResolveScope(first, in.Registry)
	if countScope.Strength < 0.5 || in.Evidence.DBCount < 1 {
		return nil, false
	}

	return []Operation{
		{
			Tag:       OpCount,
			Scope:     countScope,
			Evidence:  in.Evidence,
			Utterance: first,
		},
		{
			Tag:              OpFAQ,
			Scope:            in.Scope,
			Evidence:         in.Evidence,
			Utterance:        second,
			SuppressGreeting: true,
		},
	}, true
}

func (s Signals) any() bool {
	return s.Count || s.List || s.Explain || s.ExplainAll || s.Compare || s.Recommend
}

func containsVagueTerm(utterance string, snap *registry.Snapshot) bool {
	lower := strings.ToLower(utterance)
	for term := range snap.VagueTerms {
		if containsWord(lower, term) {
			return true
		}
	}
	return false
}
