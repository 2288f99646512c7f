package crypto_test

import (
	"testing"

	"github.com/akentev/account-service/internal/common/crypto"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	hasher := &crypto.BcryptHasher{}

	hash, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "password123" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := hasher.Compare(hash, "password123"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := hasher.Compare(hash, "wrong"); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestBcryptHasher_UniqueSalt(t *testing.T) {
	hasher := &crypto.BcryptHasher{}

	first, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if first == second {
		t.Error("expected distinct digests for repeated hashing of the same plaintext")
	}
}

func TestBcryptHasher_Compare_MalformedDigest(t *testing.T) {
	hasher := &crypto.BcryptHasher{}

	if err := hasher.Compare("not-a-bcrypt-digest", "password123"); err == nil {
		t.Error("expected error for malformed digest")
	}
}
