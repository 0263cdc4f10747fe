package test

import (
	"errors"

	pkgAuth "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/pkg/auth"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied secret.
func (h HasherStub) Hash(secret string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(secret)
	}
	return "hash:" + secret, nil
}

// Compare validates secret against stored hash.
func (h HasherStub) Compare(hash, secret string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, secret)
	}
	if hash != "hash:"+secret {
		return errors.New("mismatch")
	}
	return nil
}

// VerifierStub accepts a single token when enabled.
type VerifierStub struct {
	Token string
	Off   bool
}

// Enabled reports whether tokens are checked.
func (v VerifierStub) Enabled() bool {
	return !v.Off
}

// Verify compares token with the expected one.
func (v VerifierStub) Verify(token string) error {
	if v.Off {
		return nil
	}
	if token == "" || token != v.Token {
		return pkgAuth.ErrInvalidToken
	}
	return nil
}

var _ pkgAuth.TokenHasher = HasherStub{}
var _ pkgAuth.Verifier = VerifierStub{}
