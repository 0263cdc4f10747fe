package test

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns n random bytes hex encoded, the shape of fingerprints and transaction ids.
func RandomHex(n int) string {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
