package security_test

import (
	"testing"

	"github.com/tantalumq/taco/internal/security"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	hasher := security.NewPasswordHasher(4) // min cost, fast in tests

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	if hash == "correct horse battery staple" {
		t.Error("hash must not equal the plaintext")
	}

	if !hasher.Compare(hash, "correct horse battery staple") {
		t.Error("expected matching password to compare true")
	}

	if hasher.Compare(hash, "wrong password") {
		t.Error("expected non-matching password to compare false")
	}
}

func TestNewSessionToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := security.NewSessionToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		if len(token) != 64 {
			t.Fatalf("unexpected token length: %d", len(token))
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}
