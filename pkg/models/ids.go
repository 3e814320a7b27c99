package models

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not security
	"encoding/hex"
	"fmt"
)

// deriveID builds a deterministic identifier from a seed string: the MD5 of
// the seed, split into two 8-hex-digit groups under the given prefix, e.g.
// TX-1a2b3c4d-5e6f7a8b. The same seed always yields the same identifier,
// which keeps simulation runs reproducible for a given calendar date.
func deriveID(prefix, seed string) string {
	sum := md5.Sum([]byte(seed)) //nolint:gosec
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s-%s-%s", prefix, h[:8], h[8:16])
}
