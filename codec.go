package naimatauth

import (
	"github.com/amnashah110/naimat-auth/codehash"
	"github.com/amnashah110/naimat-auth/internal"
)

// codec bundles code generation with the slow hash. Verification never
// compares plaintext: it delegates to the hash primitive's constant-time
// comparison.
type codec struct {
	digits int
	hasher *codehash.Hasher
}

func newCodec(digits int, hasher *codehash.Hasher) *codec {
	return &codec{
		digits: digits,
		hasher: hasher,
	}
}

func (c *codec) GenerateCode() (string, error) {
	return internal.NewCode(c.digits)
}

func (c *codec) Hash(code string) (string, error) {
	return c.hasher.Hash(code)
}

func (c *codec) Verify(codeHash, candidate string) (bool, error) {
	if len(candidate) != c.digits || !isNumericString(candidate) {
		// Malformed input cannot match any issued code; skip the expensive
		// derivation but let the caller still record the attempt.
		return false, nil
	}
	return c.hasher.Verify(candidate, codeHash)
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
