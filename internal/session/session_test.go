package session_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bankpilot.app/concierge/internal/session"
)

var _ = Describe("Manager", func() {
	var mgr *session.Manager

	BeforeEach(func() {
		mgr = session.NewManager(30 * time.Minute)
	})

	It("returns nil for a session that has never committed", func() {
		Expect(mgr.Last("s1")).To(BeNil())
	})

	It("returns the committed turn", func() {
		mgr.Commit("s1", session.LastTurn{
			Intent:   "COUNT",
			Bank:     "SBI",
			Category: "Credit Card",
		})

		last := mgr.Last("s1")
		Expect(last).NotTo(BeNil())
		Expect(last.Intent).To(Equal("COUNT"))
		Expect(last.Bank).To(Equal("SBI"))
		Expect(last.At).NotTo(BeZero())
	})

	It("isolates sessions from each other", func() {
		mgr.Commit("s1", session.LastTurn{Intent: "COUNT"})
		Expect(mgr.Last("s2")).To(BeNil())
	})

	It("returns a copy that cannot mutate stored state", func() {
		mgr.Commit("s1", session.LastTurn{
			Intent:      "LIST",
			ProductList: []string{"A", "B"},
		})

		last := mgr.Last("s1")
		last.ProductList[0] = "mutated"
		last.Intent = "EXPLAIN"

		fresh := mgr.Last("s1")
		Expect(fresh.ProductList[0]).To(Equal("A"))
		Expect(fresh.Intent).To(Equal("LIST"))
	})

	It("replaces the product list after execution", func() {
		mgr.Commit("s1", session.LastTurn{Intent: "LIST", Bank: "SBI", Category: "Credit Card"})
		mgr.SetProductList("s1", []string{"SimplySAVE", "Elite", "Prime"})

		last := mgr.Last("s1")
		Expect(last.ProductList).To(Equal([]string{"SimplySAVE", "Elite", "Prime"}))
	})

	It("ignores a product list for a session with no committed turn", func() {
		mgr.SetProductList("ghost", []string{"A"})
		Expect(mgr.Last("ghost")).To(BeNil())
	})

	It("clears state on reset", func() {
		mgr.Commit("s1", session.LastTurn{Intent: "COUNT"})
		mgr.Reset("s1")
		Expect(mgr.Last("s1")).To(BeNil())
	})

	It("serializes turns within a session", func() {
		unlock := mgr.Lock("s1")

		acquired := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			u := mgr.Lock("s1")
			close(acquired)
			u()
		}()

		Consistently(acquired, 50*time.Millisecond).ShouldNot(BeClosed())
		unlock()
		Eventually(acquired).Should(BeClosed())
	})
})
