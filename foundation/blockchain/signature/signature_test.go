package signature_test

import (
	"strings"
	"testing"

	"github.com/minicoin/minicoin/foundation/blockchain/signature"
)

func Test_SignVerify(t *testing.T) {
	privateKey, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	address := signature.Address(privateKey)
	if !signature.IsValidAddress(address) {
		t.Fatalf("derived address %q is not a valid address", address)
	}
	if len(address) != 130 || !strings.HasPrefix(address, "04") {
		t.Fatalf("address should be 130 hex characters with 04 prefix, got %q", address)
	}

	msg := signature.Hash("the quick brown fox")

	sig, err := signature.Sign(privateKey, msg)
	if err != nil {
		t.Fatalf("signing: %s", err)
	}

	if !signature.Verify(address, msg, sig) {
		t.Fatal("signature should verify against the signing address")
	}

	otherKey, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}

	if signature.Verify(signature.Address(otherKey), msg, sig) {
		t.Fatal("signature should not verify against a different address")
	}

	if signature.Verify(address, signature.Hash("another message"), sig) {
		t.Fatal("signature should not verify against a different message")
	}
}

func Test_HexToBinary(t *testing.T) {
	tests := []struct {
		hex string
		bin string
	}{
		{"0", "0000"},
		{"f", "1111"},
		{"a3", "10100011"},
		{"00ff", "0000000011111111"},
	}

	for _, tt := range tests {
		got, err := signature.HexToBinary(tt.hex)
		if err != nil {
			t.Fatalf("HexToBinary(%q): %s", tt.hex, err)
		}
		if got != tt.bin {
			t.Errorf("HexToBinary(%q) = %q, want %q", tt.hex, got, tt.bin)
		}
	}

	if _, err := signature.HexToBinary("xyz"); err == nil {
		t.Error("HexToBinary should reject non hex input")
	}
}

func Test_HashDeterminism(t *testing.T) {
	h1 := signature.Hash("data")
	h2 := signature.Hash("data")

	if h1 != h2 {
		t.Fatal("hash should be deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("hash should be 64 hex characters, got %d", len(h1))
	}
}
