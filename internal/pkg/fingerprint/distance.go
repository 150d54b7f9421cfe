package fingerprint

import (
	"encoding/hex"
	"fmt"
	"math/bits"
)

// Distance returns the Hamming distance between two hex-encoded fingerprints
// of equal length: the number of differing bits in their binary expansion.
func Distance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("fingerprint length mismatch: %d vs %d", len(a), len(b))
	}
	ab, err := hex.DecodeString(a)
	if err != nil {
		return 0, fmt.Errorf("decode fingerprint %q: %w", a, err)
	}
	bb, err := hex.DecodeString(b)
	if err != nil {
		return 0, fmt.Errorf("decode fingerprint %q: %w", b, err)
	}

	d := 0
	for i := range ab {
		d += bits.OnesCount8(ab[i] ^ bb[i])
	}
	return d, nil
}
