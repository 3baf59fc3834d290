package transaction_test

import (
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/muamalati/internal/transaction"
)

var _ = Describe("Tracking numbers", func() {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	It("matches TXN-<base36 millis>-<6 chars>", func() {
		n := transaction.NewTrackingNumber(now)

		Expect(n).To(MatchRegexp(`^TXN-[A-Z0-9]+-[A-Z0-9]{6}$`))
		parts := strings.Split(n, "-")
		Expect(parts[1]).To(Equal(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))))
	})

	It("varies the random suffix", func() {
		seen := make(map[string]struct{})
		for i := 0; i < 200; i++ {
			seen[transaction.NewTrackingNumber(now)] = struct{}{}
		}
		Expect(len(seen)).To(BeNumerically(">", 190))
	})

	It("builds references with an uppercased prefix and 4 chars", func() {
		Expect(transaction.NewReference("doc", now)).To(MatchRegexp(`^DOC-[A-Z0-9]+-[A-Z0-9]{4}$`))
		Expect(transaction.NewReference("", now)).To(HavePrefix("REF-"))
	})
})
