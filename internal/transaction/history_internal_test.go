package transaction

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("historyFromDecision", func() {
	decision := func(changes map[string]interface{}) *Decision {
		return &Decision{
			From:        StatusUnderReview,
			Transaction: Transaction{ID: "t-1", Status: StatusApproved, UpdatedAt: time.Now()},
			Effects: Effects{History: HistoryIntent{
				Action:    "approve",
				OldStatus: StatusUnderReview,
				NewStatus: StatusApproved,
				Changes:   changes,
			}},
		}
	}

	It("encodes the changes as JSON", func() {
		h, err := historyFromDecision(decision(map[string]interface{}{"notes": "ok"}), "e-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Valid(h.Changes)).To(BeTrue())
		Expect(h.UserID).To(Equal("e-1"))
		Expect(*h.NewStatus).To(Equal(StatusApproved))
	})

	It("returns the encoding error instead of storing empty changes", func() {
		h, err := historyFromDecision(decision(map[string]interface{}{"data": json.RawMessage(`{bad`)}), "e-1")
		Expect(err).To(MatchError(ContainSubstring("encode changes")))
		Expect(h).To(BeNil())
	})
})
