package routing_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bankpilot.app/concierge/internal/model"
	"bankpilot.app/concierge/internal/registry"
	"bankpilot.app/concierge/internal/routing"
)

var _ = Describe("Validate", func() {
	var snap *registry.Snapshot

	BeforeEach(func() {
		snap = testSnapshot()
	})

	validate := func(utterance string, ev routing.Evidence, contextBank string) routing.Decision {
		return routing.Validate(routing.ValidatorInput{
			Utterance:    utterance,
			Scope:        routing.ResolveScope(utterance, snap),
			Signals:      routing.ExtractSignals(utterance),
			Evidence:     ev,
			ContextBank:  contextBank,
			Registry:     snap,
			FAQThreshold: 0.60,
		})
	}

	It("routes a confirmed product count to COUNT", func() {
		d := validate("how many SBI credit cards", routing.Evidence{DBCount: 16, FAQTopSimilarity: 0.15}, "")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpCount))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
		Expect(d.Operations[0].Scope.Category).To(Equal("Credit Card"))
	})

	It("refuses COUNT when the catalog count is zero", func() {
		d := validate("how many SBI credit cards", routing.Evidence{DBCount: 0, FAQTopSimilarity: 0.1}, "")

		Expect(d.Operations[0].Tag).NotTo(Equal(routing.OpCount))
	})

	It("refuses COUNT when the count is unknown", func() {
		d := validate("how many credit cards are there in total", routing.Evidence{DBCount: routing.UnknownCount}, "")

		Expect(d.Operations[0].Tag).NotTo(Equal(routing.OpCount))
	})

	It("routes a procedural count question to FAQ", func() {
		d := validate("how many steps to apply for a loan", routing.Evidence{DBCount: 25, FAQTopSimilarity: 0.88}, "")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpFAQ))
	})

	It("splits a conjoined count and procedure into COUNT then FAQ", func() {
		d := validate("how many SBI cards and how to apply", routing.Evidence{DBCount: 16, FAQTopSimilarity: 0.76}, "")

		Expect(d.Operations).To(HaveLen(2))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpCount))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
		Expect(d.Operations[0].Scope.Strength).To(BeNumerically(">=", 0.5))
		Expect(d.Operations[0].Utterance).To(Equal("how many SBI cards"))
		Expect(d.Operations[1].Tag).To(Equal(routing.OpFAQ))
		Expect(d.Operations[1].Utterance).To(Equal("how to apply"))
		Expect(d.Operations[1].SuppressGreeting).To(BeTrue())
	})

	It("does not split when the count clause has no resolved scope", func() {
		d := validate("how many things and how to apply", routing.Evidence{DBCount: routing.UnknownCount, FAQTopSimilarity: 0.8}, "")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpFAQ))
	})

	It("lets COMPARE shadow a count cue", func() {
		d := validate("compare SBI vs HDFC home loan", routing.Evidence{DBCount: 7, FAQTopSimilarity: 0.7}, "")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpCompare))
		Expect(d.Operations[0].Scope.Banks()).To(Equal([]string{"SBI", "HDFC"}))
		Expect(d.Operations[0].Scope.Category).To(Equal("Home Loan"))
	})

	It("downgrades a single-bank compare to EXPLAIN_ALL", func() {
		d := validate("compare SBI home loans", routing.Evidence{DBCount: 4}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpExplainAll))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
	})

	It("routes recommend over count", func() {
		d := validate("which SBI credit card is best", routing.Evidence{DBCount: 16}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpRecommend))
	})

	It("routes an explicit LIST with confirmed rows", func() {
		d := validate("list SBI credit cards", routing.Evidence{DBCount: 16}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpList))
	})

	It("clarifies a LIST with no bank or category", func() {
		d := validate("list cards", routing.Evidence{DBCount: routing.UnknownCount}, "")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(HavePrefix("Which bank?"))
		Expect(d.ClarifyPrompt).To(ContainSubstring("SBI"))
	})

	It("clarifies a LIST with a category but no bank", func() {
		d := validate("list home loans", routing.Evidence{DBCount: 7}, "")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(HavePrefix("Which bank?"))
	})

	It("inherits the context bank for an explicit LIST", func() {
		d := validate("list home loans", routing.Evidence{DBCount: 7}, "SBI")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpList))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
		Expect(d.Operations[0].Scope.Category).To(Equal("Home Loan"))
		Expect(d.Operations[0].Scope.Strength).To(Equal(1.0))
	})

	Context("smart fork", func() {
		It("promotes a bare category to LIST with the context bank", func() {
			d := validate("credit cards", routing.Evidence{DBCount: 30}, "SBI")

			Expect(d.Operations[0].Tag).To(Equal(routing.OpList))
			Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
			Expect(d.Operations[0].Scope.Category).To(Equal("Credit Card"))
		})

		It("clarifies a bare category without a context bank", func() {
			d := validate("credit cards", routing.Evidence{DBCount: 30}, "")

			Expect(d.IsClarify()).To(BeTrue())
			Expect(d.ClarifyPrompt).To(HavePrefix("Which bank?"))
		})
	})

	It("routes explain with a resolved product name", func() {
		d := validate("explain SimplySAVE", routing.Evidence{DBCount: 1}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpExplain))
		Expect(d.Operations[0].Scope.ProductName).To(Equal("SimplySAVE"))
	})

	It("routes explain all over a category", func() {
		d := validate("explain all SBI credit cards", routing.Evidence{DBCount: 16}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpExplainAll))
	})

	It("routes to FAQ on similarity evidence alone", func() {
		d := validate("can i block my card online", routing.Evidence{DBCount: routing.UnknownCount, FAQTopSimilarity: 0.81, FAQTopMatch: &model.FAQMatch{Question: "How to block a card"}}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpFAQ))
	})

	It("clarifies a bare bank", func() {
		d := validate("sbi", routing.Evidence{DBCount: 16}, "")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(HavePrefix("Which product type?"))
	})

	It("clarifies a vague term", func() {
		d := validate("cards", routing.Evidence{DBCount: routing.UnknownCount}, "")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(ContainSubstring("more specific"))
	})

	It("clarifies when two banks appear without a compare cue", func() {
		d := validate("sbi hdfc credit cards", routing.Evidence{DBCount: 30}, "")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(ContainSubstring("SBI"))
		Expect(d.ClarifyPrompt).To(ContainSubstring("HDFC"))
	})

	It("clarifies everything on an empty registry", func() {
		d := routing.Validate(routing.ValidatorInput{
			Utterance:    "how many SBI credit cards",
			Registry:     &registry.Snapshot{},
			FAQThreshold: 0.60,
		})

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(ContainSubstring("ingestion"))
	})

	It("falls back to the LLM when nothing matches", func() {
		d := validate("tell me a story about dragons", routing.Evidence{DBCount: routing.UnknownCount, FAQTopSimilarity: 0.12}, "")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpLLMFallback))
	})

	It("ignores product-name differences for non-explain routing", func() {
		base := routing.ResolveScope("how many SBI credit cards", snap)
		withProduct := base
		withProduct.ProductName = "SimplySAVE"

		ev := routing.Evidence{DBCount: 16}
		d1 := routing.Validate(routing.ValidatorInput{
			Utterance: "how many SBI credit cards", Scope: base,
			Signals: routing.ExtractSignals("how many SBI credit cards"),
			Evidence: ev, Registry: snap, FAQThreshold: 0.60,
		})
		d2 := routing.Validate(routing.ValidatorInput{
			Utterance: "how many SBI credit cards", Scope: withProduct,
			Signals: routing.ExtractSignals("how many SBI credit cards"),
			Evidence: ev, Registry: snap, FAQThreshold: 0.60,
		})

		Expect(d1.Operations[0].Tag).To(Equal(d2.Operations[0].Tag))
	})

	It("is idempotent for identical input", func() {
		ev := routing.Evidence{DBCount: 16, FAQTopSimilarity: 0.15}
		d1 := validate("how many SBI credit cards", ev, "")
		d2 := validate("how many SBI credit cards", ev, "")

		Expect(d1).To(Equal(d2))
	})
})
