package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateVerificationCode returns a random number in [100000, 999999].
func GenerateVerificationCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, fmt.Errorf("failed to generate verification code: %w", err)
	}
	return int(n.Int64()) + 100000, nil
}
