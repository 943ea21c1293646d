package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
	if !VerifyPassword(encoded, "password") {
		t.Fatalf("expected verification to succeed")
	}
	if VerifyPassword(encoded, "Password") {
		t.Fatalf("expected verification to fail for wrong password")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashPassword("password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must not be equal")
	}
}

func TestVerifyPasswordRejectsGarbage(t *testing.T) {
	for _, encoded := range []string{"", "plaintext", "$argon2id$v=19$bad"} {
		if VerifyPassword(encoded, "password") {
			t.Fatalf("verification succeeded for %q", encoded)
		}
	}
}

func TestOpaqueTokenHashStable(t *testing.T) {
	raw, hash, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatalf("empty token material")
	}
	if HashToken(raw) != hash {
		t.Fatalf("HashToken must reproduce the issued hash")
	}
}
