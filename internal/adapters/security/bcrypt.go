package security

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptOTPHasher stores one-time codes as bcrypt hashes.
type BcryptOTPHasher struct {
	cost int
}

// NewBcryptOTPHasher falls back to bcrypt.MinCost for out-of-range costs.
func NewBcryptOTPHasher(cost int) *BcryptOTPHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.MinCost
	}
	return &BcryptOTPHasher{cost: cost}
}

func (h *BcryptOTPHasher) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptOTPHasher) Compare(hash, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}
