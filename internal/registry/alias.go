package registry

import (
	"strings"
	"time"
)

// buildSnapshot derives the alias sets from the raw distinct values.
//
// Categories get the full phrase plus its plural/singular variants as
// aliases. The trailing word of a multi-word category ("card" of "Credit
// Card") becomes an alias only when it identifies exactly one category;
// when it is shared ("card", "loan") it becomes a vague term instead, so
// the resolver can ask for clarification rather than guess.
func buildSnapshot(banks, categories, names []string) *Snapshot {
	snap := &Snapshot{
		ProductOwner: make(map[string]string),
		VagueTerms:   make(map[string]bool),
		FetchedAt:    time.Now(),
	}

	for _, b := range banks {
		snap.Banks = append(snap.Banks, Entity{
			Canonical: b,
			Aliases:   []string{strings.ToLower(strings.TrimSpace(b))},
		})
	}

	// trailing word -> categories that end with it
	tails := make(map[string][]int)

	for _, c := range categories {
		entity := Entity{
			Canonical: c,
			Aliases:   phraseVariants(c),
		}
		idx := len(snap.Categories)
		snap.Categories = append(snap.Categories, entity)

		words := strings.Fields(strings.ToLower(c))
		if len(words) > 1 {
			tail := singular(words[len(words)-1])
			tails[tail] = append(tails[tail], idx)
		}
	}

	for tail, owners := range tails {
		if len(owners) == 1 {
			e := &snap.Categories[owners[0]]
			e.Aliases = append(e.Aliases, tail, tail+"s")
		} else {
			snap.VagueTerms[tail] = true
			snap.VagueTerms[tail+"s"] = true
		}
	}

	for _, n := range names {
		snap.Products = append(snap.Products, Entity{
			Canonical: n,
			Aliases:   []string{strings.ToLower(n)},
		})
	}

	return snap
}

// phraseVariants returns the lowercase phrase with both plural and singular
// forms, deduplicated.
func phraseVariants(s string) []string {
	lower := strings.ToLower(strings.TrimSpace(s))
	variants := []string{lower}

	sing := singular(lower)
	if sing != lower {
		variants = append(variants, sing)
	} else if !strings.HasSuffix(lower, "s") {
		variants = append(variants, lower+"s")
	}

	return variants
}

func singular(s string) string {
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") && len(s) > 3 {
		return strings.TrimSuffix(s, "s")
	}
	return s
}
