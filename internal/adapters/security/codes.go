package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumericCodeGenerator draws each digit uniformly from crypto/rand.
type NumericCodeGenerator struct{}

func NewNumericCodeGenerator() NumericCodeGenerator {
	return NumericCodeGenerator{}
}

func (NumericCodeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	ten := big.NewInt(10)
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
