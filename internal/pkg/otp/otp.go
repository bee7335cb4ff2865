// Package otp generates the six-digit one-time codes sent during registration.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	minCode = 100000
	maxCode = 999999
)

var span = big.NewInt(maxCode - minCode + 1)

// Generate draws a code uniformly from [100000, 999999] using r.
// A nil reader means crypto/rand.
func Generate(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, span)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}
