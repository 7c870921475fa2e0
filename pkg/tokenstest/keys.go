package tokenstest

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
)

var (
	sharedKey     *rsa.PrivateKey
	sharedKeyOnce sync.Once
)

// SharedTestKey returns a cached 2048-bit RSA key for testing.
// Using a shared key avoids the overhead of key generation per test.
func SharedTestKey() *rsa.PrivateKey {
	sharedKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("tokenstest: failed to generate key: " + err.Error())
		}
		sharedKey = key
	})
	return sharedKey
}

// GenerateTestKey creates a fresh RSA key.
// Use this when tests need isolated keys (e.g., testing wrong-key scenarios).
func GenerateTestKey() (
	*rsa.PrivateKey,
	error,
) {
	return rsa.GenerateKey(rand.Reader, 2048)
}
