package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultSecretLength applies when GenerateSecret is called with a
// non-positive length.
const DefaultSecretLength = 32

// GenerateSecret produces an opaque alphanumeric one-time token for
// email verification and password reset. The plaintext is returned once
// for out-of-band delivery; only its digest is stored.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return string(buf), nil
}

// DigestSecret returns the hex SHA-256 digest of a one-time token.
// Deterministic, so the store can match a presented token with a single
// indexed lookup. These tokens are high-entropy random values; the slow
// adaptive hash is reserved for user passwords.
func DigestSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
