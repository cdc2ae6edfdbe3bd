// Package ids builds the opaque, prefixed identifiers handed out by the
// engine (proof hashes, consent ids, mock transaction references).
package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Random returns n characters drawn from [a-z0-9] using crypto/rand.
func Random(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate random id: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Timestamped returns <prefix><unix millis>_<n random chars>.
func Timestamped(prefix string, now time.Time, n int) (string, error) {
	suffix, err := Random(n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d_%s", prefix, now.UnixMilli(), suffix), nil
}
