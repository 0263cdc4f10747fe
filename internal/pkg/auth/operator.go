package auth

import (
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid operator token")

// Verifier checks operator bearer tokens.
type Verifier interface {
	Enabled() bool
	Verify(token string) error
}

// OperatorVerifier compares presented tokens against a single bcrypt hash.
// An empty hash disables the check.
type OperatorVerifier struct {
	hash   string
	hasher TokenHasher
}

// NewOperatorVerifier builds OperatorVerifier for hash.
func NewOperatorVerifier(hash string, hasher TokenHasher) *OperatorVerifier {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &OperatorVerifier{hash: strings.TrimSpace(hash), hasher: hasher}
}

// Enabled reports whether a token hash is configured.
func (v *OperatorVerifier) Enabled() bool {
	return v.hash != ""
}

// Verify returns ErrInvalidToken unless token matches the configured hash.
func (v *OperatorVerifier) Verify(token string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}
	if err := v.hasher.Compare(v.hash, token); err != nil {
		return ErrInvalidToken
	}
	return nil
}
