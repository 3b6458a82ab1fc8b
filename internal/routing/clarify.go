package routing

import (
	"fmt"
	"strings"

	"bankpilot.app/concierge/internal/registry"
)

// Clarification prompt texts. Banks and categories are always drawn from the
// registry, never hardcoded.

func promptMissingBank(snap *registry.Snapshot) string {
	names := make([]string, 0, 5)
	for _, b := range snap.Banks {
		if len(names) == 5 {
			break
		}
		names = append(names, b.Canonical)
	}
	return fmt.Sprintf("Which bank? Known banks: %s.", strings.Join(names, ", "))
}

func promptMissingCategory(snap *registry.Snapshot) string {
	names := make([]string, 0, len(snap.Categories))
	for _, c := range snap.Categories {
		names = append(names, strings.ToLower(c.Canonical))
	}
	return fmt.Sprintf("Which product type? (%s)", strings.Join(names, ", "))
}

func promptVague() string {
	return "Could you be more specific — a bank, a product category, or a specific question?"
}

func promptOrdinalOutOfRange(n int) string {
	return fmt.Sprintf("I only have %d items in the last list.", n)
}

func promptNoPriorList() string {
	return "I don't have a previous list to pick from. Ask me to list some products first."
}

func promptIngestionIncomplete() string {
	return "I don't have any product data loaded yet (ingestion incomplete). Please try again shortly."
}

func promptAmbiguousBanks(banks []string) string {
	return fmt.Sprintf("I see more than one bank (%s). Which one did you mean? You can also ask me to compare them.", strings.Join(banks, ", "))
}

func promptTimeoutApology() string {
	return "Sorry, that took longer than expected. Could you ask again?"
}
