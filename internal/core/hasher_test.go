package core

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasher_Cost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost - 1, bcrypt.MaxCost + 1} {
		if _, err := NewBcryptHasher(cost); err == nil {
			t.Errorf("NewBcryptHasher(%d) should fail", cost)
		}
	}

	h, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if h.Cost() != bcrypt.MinCost {
		t.Errorf("Cost() = %d, want %d", h.Cost(), bcrypt.MinCost)
	}
}

func TestBcryptHasher_Hash(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	hash, err := h.Hash("s3cret pw")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "s3cret pw" {
		t.Fatal("hash equals plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret pw")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}

	again, _ := h.Hash("s3cret pw")
	if again == hash {
		t.Error("hashes should be salted")
	}

	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("passwords over 72 bytes should be refused")
	}
}
