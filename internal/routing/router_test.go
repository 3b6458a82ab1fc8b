package routing_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bankpilot.app/concierge/core/config"
	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/model"
	"bankpilot.app/concierge/internal/registry"
	"bankpilot.app/concierge/internal/routing"
	"bankpilot.app/concierge/internal/session"
)

var _ = Describe("Router", func() {
	var (
		store    *mockProductStore
		index    *mockIndex
		sessions *session.Manager
		router   *routing.Router
		ctx      context.Context
	)

	routingCfg := config.RoutingConfig{
		FAQThreshold:    0.60,
		EvidenceTimeout: 100 * time.Millisecond,
		EvidenceBackoff: 5 * time.Millisecond,
		RegistryTTL:     time.Minute,
		Greetings:       []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"},
	}

	BeforeEach(func() {
		store = &mockProductStore{}
		store.countFn = func(ctx context.Context, f catalog.Filter) (int, error) {
			if f.Category != nil && *f.Category == "Home Loan" {
				return 7, nil
			}
			return 16, nil
		}
		index = &mockIndex{}
		index.topKFn = faqHit(0.15)

		sessions = session.NewManager(30 * time.Minute)
		reg := registry.New(store, time.Minute)
		retriever := routing.NewRetriever(store, index, 100*time.Millisecond, 5*time.Millisecond)
		router = routing.NewRouter(reg, sessions, retriever, routingCfg)
		ctx = context.Background()
	})

	It("short-circuits greetings without touching state", func() {
		d := router.Route(ctx, "s1", "Hello!")

		Expect(d.Greeting).To(BeTrue())
		Expect(d.Operations).To(BeEmpty())
		Expect(sessions.Last("s1")).To(BeNil())
	})

	It("routes a product count to COUNT and commits the turn", func() {
		d := router.Route(ctx, "s1", "how many SBI credit cards")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpCount))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
		Expect(d.Operations[0].Evidence.DBCount).To(Equal(16))

		last := sessions.Last("s1")
		Expect(last).NotTo(BeNil())
		Expect(last.Intent).To(Equal("COUNT"))
		Expect(last.Bank).To(Equal("SBI"))
		Expect(last.Category).To(Equal("Credit Card"))
	})

	It("routes a procedural count question to FAQ", func() {
		index.topKFn = faqHit(0.88)

		d := router.Route(ctx, "s1", "how many steps to apply for a loan")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpFAQ))
	})

	It("splits a conjoined question into COUNT then FAQ", func() {
		index.topKFn = faqHit(0.76)

		d := router.Route(ctx, "s1", "how many SBI cards and how to apply")

		Expect(d.Operations).To(HaveLen(2))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpCount))
		Expect(d.Operations[1].Tag).To(Equal(routing.OpFAQ))
		Expect(d.Operations[1].Utterance).To(Equal("how to apply"))
	})

	It("smart-forks a bare category using the remembered bank", func() {
		router.Route(ctx, "s1", "how many SBI credit cards")

		d := router.Route(ctx, "s1", "credit cards")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpList))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
		Expect(d.Operations[0].Scope.Category).To(Equal("Credit Card"))
	})

	It("resolves an ordinal against the last product list", func() {
		router.Route(ctx, "s1", "list SBI credit cards")
		sessions.SetProductList("s1", []string{"SimplySAVE", "Elite", "Prime"})

		d := router.Route(ctx, "s1", "explain the second one")

		Expect(d.Rewritten).To(Equal("explain Elite"))
		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpExplain))
		Expect(d.Operations[0].Scope.ProductName).To(Equal("Elite"))
	})

	It("clarifies a list with no bank", func() {
		d := router.Route(ctx, "s1", "list cards")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(HavePrefix("Which bank?"))
	})

	It("routes a two-bank comparison to COMPARE, not COUNT or FAQ", func() {
		index.topKFn = faqHit(0.7)

		d := router.Route(ctx, "s1", "compare SBI vs HDFC home loan")

		Expect(d.Operations).To(HaveLen(1))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpCompare))
		Expect(d.Operations[0].Scope.Banks()).To(Equal([]string{"SBI", "HDFC"}))
		Expect(d.Operations[0].Scope.Category).To(Equal("Home Loan"))
	})

	It("never commits on a CLARIFY decision", func() {
		router.Route(ctx, "s1", "list cards")

		Expect(sessions.Last("s1")).To(BeNil())
	})

	It("keeps ordinal chains alive across explain turns", func() {
		router.Route(ctx, "s1", "list SBI credit cards")
		sessions.SetProductList("s1", []string{"SimplySAVE", "Elite", "Prime"})

		router.Route(ctx, "s1", "explain the first one")
		d := router.Route(ctx, "s1", "the third one")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpExplain))
		Expect(d.Operations[0].Scope.ProductName).To(Equal("Prime"))
	})

	It("explains a listed product the registry has not caught up with", func() {
		router.Route(ctx, "s1", "list SBI credit cards")
		sessions.SetProductList("s1", []string{"SimplySAVE", "Aurum"})

		d := router.Route(ctx, "s1", "explain the second one")

		Expect(d.Operations[0].Tag).To(Equal(routing.OpExplain))
		Expect(d.Operations[0].Scope.ProductName).To(Equal("Aurum"))
		Expect(d.Operations[0].Scope.Bank).To(Equal("SBI"))
	})

	It("clarifies an out-of-range ordinal without committing", func() {
		router.Route(ctx, "s1", "list SBI credit cards")
		sessions.SetProductList("s1", []string{"SimplySAVE", "Elite"})
		before := sessions.Last("s1")

		d := router.Route(ctx, "s1", "the fifth one")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(ContainSubstring("2 items"))
		Expect(sessions.Last("s1").Intent).To(Equal(before.Intent))
	})

	It("rewrites list them after a count", func() {
		router.Route(ctx, "s1", "how many SBI credit cards")

		d := router.Route(ctx, "s1", "list them")

		Expect(d.Rewritten).To(Equal("list SBI Credit Card"))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpList))
	})

	It("rewrites a bare bank against the remembered category", func() {
		router.Route(ctx, "s1", "list SBI credit cards")

		d := router.Route(ctx, "s1", "hdfc")

		Expect(d.Rewritten).To(Equal("list HDFC Credit Card"))
		Expect(d.Operations[0].Tag).To(Equal(routing.OpList))
		Expect(d.Operations[0].Scope.Bank).To(Equal("HDFC"))
	})

	It("isolates conversation state between sessions", func() {
		router.Route(ctx, "s1", "how many SBI credit cards")

		d := router.Route(ctx, "s2", "credit cards")

		Expect(d.IsClarify()).To(BeTrue())
	})

	It("yields identical decisions for the same utterance and state", func() {
		d1 := router.Route(ctx, "s1", "how many SBI credit cards")
		d2 := router.Route(ctx, "s1", "how many SBI credit cards")

		Expect(d2.Operations).To(Equal(d1.Operations))
	})

	It("apologizes instead of committing when the deadline is gone", func() {
		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		d := router.Route(expired, "s1", "how many SBI credit cards")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(sessions.Last("s1")).To(BeNil())
	})

	It("clarifies with an ingestion hint when the registry is empty", func() {
		empty := &mockProductStore{}
		// all distinct queries come back empty
		emptyReg := registry.New(&emptyStore{}, time.Minute)
		retriever := routing.NewRetriever(empty, index, 100*time.Millisecond, 5*time.Millisecond)
		r := routing.NewRouter(emptyReg, sessions, retriever, routingCfg)

		d := r.Route(ctx, "s1", "how many SBI credit cards")

		Expect(d.IsClarify()).To(BeTrue())
		Expect(d.ClarifyPrompt).To(ContainSubstring("ingestion"))
	})
})

// emptyStore simulates a catalog before any ingestion has run.
type emptyStore struct{}

func (e *emptyStore) Count(ctx context.Context, f catalog.Filter) (int, error) { return 0, nil }
func (e *emptyStore) List(ctx context.Context, bank, category string) ([]model.Product, error) {
	return nil, nil
}
func (e *emptyStore) Get(ctx context.Context, bank, name string) (*model.Product, error) {
	return nil, catalog.ErrNotFound
}
func (e *emptyStore) DistinctBanks(ctx context.Context) ([]string, error)        { return nil, nil }
func (e *emptyStore) DistinctCategories(ctx context.Context) ([]string, error)   { return nil, nil }
func (e *emptyStore) DistinctProductNames(ctx context.Context) ([]string, error) { return nil, nil }
func (e *emptyStore) Owners(ctx context.Context) (map[string]string, error)      { return nil, nil }
