package token

import (
	"strings"
	"testing"
)

func TestGenerateSecretLength(t *testing.T) {
	for _, length := range []int{1, 16, 32, 64} {
		secret, err := GenerateSecret(length)
		if err != nil {
			t.Fatalf("GenerateSecret(%d): %v", length, err)
		}
		if len(secret) != length {
			t.Errorf("len = %d, want %d", len(secret), length)
		}
	}
}

func TestGenerateSecretDefaultsLength(t *testing.T) {
	for _, length := range []int{0, -5} {
		secret, err := GenerateSecret(length)
		if err != nil {
			t.Fatalf("GenerateSecret(%d): %v", length, err)
		}
		if len(secret) != DefaultSecretLength {
			t.Errorf("len = %d, want %d", len(secret), DefaultSecretLength)
		}
	}
}

func TestGenerateSecretAlphabet(t *testing.T) {
	secret, err := GenerateSecret(256)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	for _, r := range secret {
		if !strings.ContainsRune(secretAlphabet, r) {
			t.Fatalf("secret contains %q outside the alphabet", r)
		}
	}
}

func TestGenerateSecretUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, err := GenerateSecret(DefaultSecretLength)
		if err != nil {
			t.Fatalf("GenerateSecret: %v", err)
		}
		if seen[secret] {
			t.Fatalf("duplicate secret after %d draws", i)
		}
		seen[secret] = true
	}
}

func TestDigestSecretDeterministic(t *testing.T) {
	if DigestSecret("abc") != DigestSecret("abc") {
		t.Error("same input produced different digests")
	}
	if DigestSecret("abc") == DigestSecret("abd") {
		t.Error("different inputs produced the same digest")
	}
	if got := len(DigestSecret("abc")); got != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", got)
	}
}
