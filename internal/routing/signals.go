package routing

import "strings"

// Lexical cue tables. Order matters only for conjunction detection, where
// the first separator splits the clauses.

var countCues = []string{"how many", "how much", "count", "number of", "total"}

var listCues = []string{"list", "show", "display", "what are", "give me all"}

var explainCues = []string{"explain", "tell me about", "details of", "what is"}

var explainAllCues = []string{"explain all", "describe all", "each of the"}

var compareCues = []string{"compare", "vs", "versus", "difference between"}

var recommendCues = []string{"best", "recommend", "which is better", "suitable for", "good for"}

var conjunctions = []string{" and ", ";", " + ", " also ", " plus "}

// nonProductWords are the nouns and verbs that mark a question as procedural:
// "how many steps" asks about a process, not a product count.
var nonProductWords = map[string]bool{
	"step": true, "steps": true,
	"document": true, "documents": true,
	"process": true, "procedure": true,
	"way": true, "ways": true,
	"apply": true, "application": true,
	"close": true, "block": true,
	"withdraw": true, "open": true,
	"time": true, "times": true, "minute": true, "minutes": true,
}

// quantityCues introduce an object; the object decides whether the question
// counts products or asks about a procedure.
var quantityCues = []string{"how many", "how much", "number of"}

// proceduralLeads anchor a non-product verb even without a quantity cue, for
// clause splitting ("... and how to apply").
var proceduralLeads = []string{"how to", "how do i", "how can i", "steps to", "documents required", "process for", "process of"}

// ExtractSignals tokenizes the utterance and raises the boolean cue flags.
// Signals are hints only; the validator weighs them against evidence.
func ExtractSignals(utterance string) Signals {
	lower := strings.ToLower(utterance)

	s := Signals{
		Count:      containsAny(lower, countCues),
		List:       containsAnyWord(lower, listCues),
		Explain:    containsAnyWord(lower, explainCues),
		ExplainAll: containsAny(lower, explainAllCues),
		Compare:    containsAnyWord(lower, compareCues),
		Recommend:  containsAnyWord(lower, recommendCues),
		conjStart:  -1,
		conjEnd:    -1,
	}

	s.NonProductTargets = nonProductTargets(lower)

	for _, conj := range conjunctions {
		if pos := strings.Index(lower, conj); pos > 0 && pos+len(conj) < len(lower) {
			s.HasConjunction = true
			if s.conjStart == -1 || pos < s.conjStart {
				s.conjStart = pos
				s.conjEnd = pos + len(conj)
			}
		}
	}

	return s
}

// Clauses splits the utterance at the first conjunction. The second clause
// is empty when there is none.
func (s Signals) Clauses(utterance string) (string, string) {
	if s.conjStart < 0 || s.conjStart >= len(utterance) {
		return utterance, ""
	}
	first := strings.TrimSpace(utterance[:s.conjStart])
	second := strings.TrimSpace(utterance[min(s.conjEnd, len(utterance)):])
	return first, second
}

// nonProductTargets returns the procedural nouns that are the object of a
// quantity cue, plus the verb of any "how to" lead. The narrow window after
// the cue keeps "how many cards and the steps to apply" from flagging the
// count clause.
func nonProductTargets(lower string) []string {
	var targets []string
	seen := make(map[string]bool)

	add := func(w string) {
		if !seen[w] {
			seen[w] = true
			targets = append(targets, w)
		}
	}

	for _, cue := range quantityCues {
		idx := strings.Index(lower, cue)
		if idx < 0 {
			continue
		}
		rest := strings.FieldsFunc(lower[idx+len(cue):], func(r rune) bool {
			return !('a' <= r && r <= 'z')
		})
		for i, w := range rest {
			if i >= 3 {
				break
			}
			if nonProductWords[w] {
				add(w)
			}
		}
	}

	for _, lead := range proceduralLeads {
		idx := strings.Index(lower, lead)
		if idx < 0 {
			continue
		}
		rest := strings.FieldsFunc(lower[idx+len(lead):], func(r rune) bool {
			return !('a' <= r && r <= 'z')
		})
		if len(rest) > 0 && nonProductWords[rest[0]] {
			add(rest[0])
		}
	}

	return targets
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

// containsAnyWord requires word boundaries, so "vs" does not fire inside
// "visvesvaraya".
func containsAnyWord(s string, cues []string) bool {
	for _, cue := range cues {
		if containsWord(s, cue) {
			return true
		}
	}
	return false
}
