package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyToken is returned when asked to hash an empty operator token.
var ErrEmptyToken = errors.New("operator token is empty")

// TokenHasher hashes operator tokens and checks presented tokens against a stored hash.
type TokenHasher interface {
	Hash(token string) (string, error)
	Compare(hash, token string) error
}

// BcryptHasher stores operator tokens as bcrypt hashes.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	encoded, err := bcrypt.GenerateFromPassword([]byte(token), h.cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (h *BcryptHasher) Compare(hash, token string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}
