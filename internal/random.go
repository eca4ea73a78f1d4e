package internal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// NewCode returns a uniformly random numeric code of exactly digits
// characters, left-padded with zeros. Constant textual width keeps every
// later comparison and display path free of short-code special cases.
func NewCode(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	space := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, space)
	if err != nil {
		return "", err
	}

	code := fmt.Sprintf("%0*d", digits, n)
	if len(code) != digits {
		return "", fmt.Errorf("invalid code generation length")
	}
	return code, nil
}
