package transaction

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTrackingNumber returns TXN-<base36 unix millis>-<6 random base36 chars>, uppercase ASCII.
func NewTrackingNumber(now time.Time) string {
	return newIdentifier("TXN", now, 6)
}

// NewReference builds the same shape with a caller prefix and a 4 character suffix.
func NewReference(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "REF"
	}
	return newIdentifier(strings.ToUpper(prefix), now, 4)
}

func newIdentifier(prefix string, now time.Time, suffixLen int) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return prefix + "-" + ts + "-" + randomBase36(suffixLen)
}

func randomBase36(n int) string {
	max := big.NewInt(int64(len(base36Alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b.WriteByte(base36Alphabet[idx.Int64()])
	}
	return b.String()
}
