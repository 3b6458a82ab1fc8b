package routing

import (
	"strings"

	"bankpilot.app/concierge/internal/registry"
)

// ResolveScope extracts the (bank, category, product) triple mentioned in
// the utterance by matching against the entity registry. Matching is
// case-insensitive on whole-word boundaries, longest alias first; product
// names additionally allow internal punctuation. Unknown tokens are ignored
// silently. Never fails: returns an empty Scope when nothing matches.
func ResolveScope(utterance string, snap *registry.Snapshot) Scope {
	var scope Scope
	if snap.Empty() {
		return scope
	}

	lower := strings.ToLower(utterance)

	// Banks in textual order; the first wins, the rest become alternates
	// for COMPARE.
	type bankHit struct {
		canonical string
		pos       int
	}
	var hits []bankHit
	for _, b := range snap.Banks {
		if pos := matchEntity(lower, b, false); pos >= 0 {
			hits = append(hits, bankHit{canonical: b.Canonical, pos: pos})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if len(hits) > 0 {
		scope.Bank = hits[0].canonical
		for _, h := range hits[1:] {
			scope.AltBanks = append(scope.AltBanks, h.canonical)
		}
	}

	// Longest category alias wins.
	bestLen := 0
	for _, c := range snap.Categories {
		for _, alias := range c.Aliases {
			if len(alias) > bestLen && containsWord(lower, alias) {
				scope.Category = c.Canonical
				bestLen = len(alias)
			}
		}
	}

	// Longest product name wins; ties go to the product because names are
	// more specific than categories.
	bestLen = 0
	for _, p := range snap.Products {
		if pos := matchEntity(lower, p, true); pos >= 0 {
			if n := len(p.Canonical); n > bestLen {
				scope.ProductName = p.Canonical
				bestLen = n
			}
		}
	}

	// A product mentioned without its bank inherits the owning bank.
	if scope.ProductName != "" && scope.Bank == "" {
		scope.Bank = snap.ProductOwner[scope.ProductName]
	}

	scope.Strength = strength(scope)
	return scope
}

func strength(s Scope) float64 {
	switch {
	case s.Bank != "" && s.Category != "":
		return 1.0
	case s.Bank != "" || s.Category != "":
		return 0.5
	default:
		return 0
	}
}

// matchEntity returns the position of the first alias match, or -1.
// Product names (loose=true) match as plain substrings so internal
// punctuation survives; everything else requires word boundaries.
func matchEntity(lower string, e registry.Entity, loose bool) int {
	for _, alias := range e.Aliases {
		if alias == "" {
			continue
		}
		if loose {
			if pos := strings.Index(lower, alias); pos >= 0 {
				return pos
			}
			continue
		}
		if pos := indexWord(lower, alias); pos >= 0 {
			return pos
		}
	}
	return -1
}

func containsWord(s, word string) bool {
	return indexWord(s, word) >= 0
}

// indexWord finds word in s with word boundaries on both sides.
func indexWord(s, word string) int {
	for start := 0; ; {
		pos := strings.Index(s[start:], word)
		if pos < 0 {
			return -1
		}
		pos += start
		end := pos + len(word)

		beforeOK := pos == 0 || !isWordChar(s[pos-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return pos
		}
		start = pos + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
