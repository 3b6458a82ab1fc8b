package registry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/model"
	"bankpilot.app/concierge/internal/registry"
)

type mockProductStore struct {
	banksFn      func(ctx context.Context) ([]string, error)
	categoriesFn func(ctx context.Context) ([]string, error)
	namesFn      func(ctx context.Context) ([]string, error)
	ownersFn     func(ctx context.Context) (map[string]string, error)
}

func (m *mockProductStore) Count(ctx context.Context, f catalog.Filter) (int, error) {
	return 0, nil
}

func (m *mockProductStore) List(ctx context.Context, bank, category string) ([]model.Product, error) {
	return nil, nil
}

func (m *mockProductStore) Get(ctx context.Context, bank, name string) (*model.Product, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockProductStore) DistinctBanks(ctx context.Context) ([]string, error) {
	if m.banksFn != nil {
		return m.banksFn(ctx)
	}
	return []string{"SBI", "HDFC"}, nil
}

func (m *mockProductStore) DistinctCategories(ctx context.Context) ([]string, error) {
	if m.categoriesFn != nil {
		return m.categoriesFn(ctx)
	}
	return []string{"Credit Card", "Debit Card", "Home Loan"}, nil
}

func (m *mockProductStore) DistinctProductNames(ctx context.Context) ([]string, error) {
	if m.namesFn != nil {
		return m.namesFn(ctx)
	}
	return []string{"SimplySAVE", "Regalia Gold"}, nil
}

func (m *mockProductStore) Owners(ctx context.Context) (map[string]string, error) {
	if m.ownersFn != nil {
		return m.ownersFn(ctx)
	}
	return map[string]string{"SimplySAVE": "SBI", "Regalia Gold": "HDFC"}, nil
}

var _ = Describe("Registry", func() {
	var (
		store *mockProductStore
		reg   *registry.Registry
		ctx   context.Context
	)

	BeforeEach(func() {
		store = &mockProductStore{}
		reg = registry.New(store, time.Minute)
		ctx = context.Background()
	})

	It("builds entities from the distinct values in the store", func() {
		snap, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(snap.Banks).To(HaveLen(2))
		Expect(snap.Banks[0].Canonical).To(Equal("SBI"))
		Expect(snap.Categories).To(HaveLen(3))
		Expect(snap.Products).To(HaveLen(2))
		Expect(snap.ProductOwner).To(HaveKeyWithValue("SimplySAVE", "SBI"))
	})

	It("adds plural aliases for categories", func() {
		snap, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		var creditCard registry.Entity
		for _, c := range snap.Categories {
			if c.Canonical == "Credit Card" {
				creditCard = c
			}
		}
		Expect(creditCard.Aliases).To(ContainElements("credit card", "credit cards"))
	})

	It("marks trailing words shared across categories as vague", func() {
		snap, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		// "card" is the tail of both Credit Card and Debit Card
		Expect(snap.VagueTerms).To(HaveKey("card"))
		Expect(snap.VagueTerms).To(HaveKey("cards"))
	})

	It("promotes a unique trailing word to a category alias", func() {
		snap, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		var homeLoan registry.Entity
		for _, c := range snap.Categories {
			if c.Canonical == "Home Loan" {
				homeLoan = c
			}
		}
		Expect(homeLoan.Aliases).To(ContainElements("loan", "loans"))
		Expect(snap.VagueTerms).NotTo(HaveKey("loan"))
	})

	It("serves the cached snapshot within the TTL", func() {
		var calls int32
		store.banksFn = func(ctx context.Context) ([]string, error) {
			atomic.AddInt32(&calls, 1)
			return []string{"SBI"}, nil
		}

		_, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
	})

	It("rebuilds after Invalidate", func() {
		var calls int32
		store.banksFn = func(ctx context.Context) ([]string, error) {
			atomic.AddInt32(&calls, 1)
			return []string{"SBI"}, nil
		}

		_, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())

		reg.Invalidate()

		_, err = reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
	})

	It("fails when the store is unreachable and no snapshot exists", func() {
		store.banksFn = func(ctx context.Context) ([]string, error) {
			return nil, errors.New("connection refused")
		}

		_, err := reg.Snapshot(ctx)
		Expect(err).To(HaveOccurred())
	})

	It("reports an empty snapshot when ingestion has not run", func() {
		store.banksFn = func(ctx context.Context) ([]string, error) { return nil, nil }
		store.categoriesFn = func(ctx context.Context) ([]string, error) { return nil, nil }
		store.namesFn = func(ctx context.Context) ([]string, error) { return nil, nil }
		store.ownersFn = func(ctx context.Context) (map[string]string, error) { return nil, nil }

		snap, err := reg.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Empty()).To(BeTrue())
	})
})
