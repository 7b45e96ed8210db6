package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const maxPinAttempts = 5

// GeneratePin returns a uniformly random numeric PIN of the given length.
func GeneratePin(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: pin length must be positive", ErrValidation)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%0*s", length, n.String()), nil
}
