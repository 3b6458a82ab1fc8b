package routing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bankpilot.app/concierge/internal/registry"
	"bankpilot.app/concierge/internal/session"
)

// Rewrite is the follow-up resolver's output: a self-contained replacement
// utterance, optionally a forced operation, or a clarification when the
// reference cannot be resolved (ordinal out of range, no prior list).
type Rewrite struct {
	Utterance     string
	ForcedOp      OpTag
	ClarifyPrompt string

	// Product is set when the rewrite already knows the referenced product
	// (ordinal into the last list, "why?" after a recommendation). Session
	// lists can name products the registry snapshot does not, so the router
	// must not depend on re-resolving the name.
	Product string
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var (
	ordinalRe = regexp.MustCompile(`^(explain |describe |show |tell me about |details of |what is )?(?:the )?(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last|#\d{1,2}|number \d{1,2}|\d{1,2}(?:st|nd|rd|th)?)( one)?\s*\??$`)

	listThemRe    = regexp.MustCompile(`^(?:list|show)\s+(?:them|those|these)\s*\??$`)
	explainThemRe = regexp.MustCompile(`^(?:explain|describe)\s+(?:them|those|these|each|all of them)\s*\??$`)
	whyHowRe      = regexp.MustCompile(`^(?:why|how)\b.*$`)
	whatAboutRe   = regexp.MustCompile(`^what about\s+(.+?)\s*\??$`)
	whichBestRe   = regexp.MustCompile(`^which(?:\s+one)?\s+is\s+(?:the\s+)?(?:best|better)\s*\??$`)
)

// ResolveFollowup rewrites context-dependent utterances against the last
// turn. It is a pure function over its arguments; a nil return means the
// utterance passes through unchanged. It does not attempt coreference on
// arbitrary pronouns, only the anchored forms below.
func ResolveFollowup(utterance string, last *session.LastTurn, snap *registry.Snapshot) *Rewrite {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	if lower == "" {
		return nil
	}

	// Ordinal reference into the last product list.
	if m := ordinalRe.FindStringSubmatch(lower); m != nil {
		cue, token := m[1], m[2]

		// A bare digit with no explain cue ("3") is too weak a reference
		// to act on.
		if cue == "" && isBareDigit(token) {
			return nil
		}

		if last == nil || len(last.ProductList) == 0 {
			return &Rewrite{ClarifyPrompt: promptNoPriorList()}
		}

		idx, ok := ordinalIndex(token, len(last.ProductList))
		if !ok {
			return &Rewrite{ClarifyPrompt: promptOrdinalOutOfRange(len(last.ProductList))}
		}

		return &Rewrite{
			Utterance: fmt.Sprintf("explain %s", last.ProductList[idx]),
			ForcedOp:  OpExplain,
			Product:   last.ProductList[idx],
		}
	}

	// "list them" after a COUNT.
	if listThemRe.MatchString(lower) {
		if last == nil || last.Bank == "" || last.Category == "" {
			return &Rewrite{ClarifyPrompt: promptNoPriorList()}
		}
		return &Rewrite{
			Utterance: fmt.Sprintf("list %s %s", last.Bank, last.Category),
			ForcedOp:  OpList,
		}
	}

	// "explain them" after a COUNT or LIST walks the whole lineup.
	if explainThemRe.MatchString(lower) {
		if last == nil || last.Category == "" || (last.Intent != string(OpCount) && last.Intent != string(OpList)) {
			return nil
		}
		return &Rewrite{
			Utterance: fmt.Sprintf("explain all %s %s", last.Bank, last.Category),
			ForcedOp:  OpExplainAll,
		}
	}

	// "which is best" over the last list or comparison.
	if whichBestRe.MatchString(lower) {
		if last == nil || last.Category == "" {
			return nil
		}
		return &Rewrite{
			Utterance: fmt.Sprintf("best %s %s", last.Bank, last.Category),
			ForcedOp:  OpRecommend,
		}
	}

	// Bare "why"/"how" after an EXPLAIN, COMPARE, or RECOMMEND: anchor the
	// question to the products it was about. Only dangling questions
	// qualify; "how to apply for a loan" is self-contained and must reach
	// the FAQ route untouched.
	if whyHowRe.MatchString(lower) && isDangling(lower) {
		if names := anchorNames(last); len(names) > 0 {
			rw := &Rewrite{
				Utterance: fmt.Sprintf("regarding %s, %s", strings.Join(names, " and "), lower),
			}
			if len(names) == 1 {
				rw.ForcedOp = OpExplain
				rw.Product = names[0]
			}
			return rw
		}
		return nil
	}

	// "what about HDFC" inherits the previous question shape.
	if m := whatAboutRe.FindStringSubmatch(lower); m != nil {
		subject := m[1]
		if bank := exactBank(subject, snap); bank != "" && last != nil && last.Category != "" {
			return &Rewrite{
				Utterance: fmt.Sprintf("list %s %s", bank, last.Category),
				ForcedOp:  OpList,
			}
		}
		return &Rewrite{Utterance: fmt.Sprintf("explain %s", subject)}
	}

	// Context-only utterance: exactly a known bank, with a remembered
	// category.
	if bank := exactBank(lower, snap); bank != "" && last != nil && last.Category != "" {
		return &Rewrite{
			Utterance: fmt.Sprintf("list %s %s", bank, last.Category),
			ForcedOp:  OpList,
		}
	}

	return nil
}

// isDangling reports whether a why/how question leans on the previous turn:
// either very short or carrying an unanchored pronoun.
func isDangling(lower string) bool {
	if strings.HasPrefix(lower, "how many") || strings.HasPrefix(lower, "how much") || strings.HasPrefix(lower, "how to") {
		return false
	}
	words := strings.Fields(strings.TrimRight(lower, "?"))
	if len(words) <= 2 {
		return true
	}
	for _, w := range words {
		switch w {
		case "it", "they", "them", "that", "this", "those", "these":
			return true
		}
	}
	return false
}

// anchorNames picks the products a dangling "why"/"how" refers to.
func anchorNames(last *session.LastTurn) []string {
	if last == nil {
		return nil
	}
	switch last.Intent {
	case string(OpRecommend):
		if last.Recommended != "" {
			return []string{last.Recommended}
		}
	case string(OpExplain):
		if last.Explained != "" {
			return []string{last.Explained}
		}
	case string(OpCompare):
		if len(last.Compared) > 0 {
			return last.Compared
		}
	}
	return nil
}

// ordinalIndex maps the matched token to a 0-based index, reporting false
// when it falls outside the list.
func ordinalIndex(token string, size int) (int, bool) {
	var n int

	switch {
	case token == "last":
		return size - 1, true
	case ordinalWords[token] != 0:
		n = ordinalWords[token]
	case strings.HasPrefix(token, "#"):
		n, _ = strconv.Atoi(token[1:])
	case strings.HasPrefix(token, "number "):
		n, _ = strconv.Atoi(strings.TrimPrefix(token, "number "))
	default:
		digits := strings.TrimRight(token, "stndrh")
		n, _ = strconv.Atoi(digits)
	}

	if n < 1 || n > size {
		return 0, false
	}
	return n - 1, true
}

func isBareDigit(token string) bool {
	_, err := strconv.Atoi(token)
	return err == nil
}

// exactBank returns the canonical bank whose alias equals the whole string.
func exactBank(s string, snap *registry.Snapshot) string {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, b := range snap.Banks {
		for _, alias := range b.Aliases {
			if s == alias {
				return b.Canonical
			}
		}
	}
	return ""
}
