// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// addressRx describes a valid address: an uncompressed secp256k1 public key,
// hex encoded, 130 characters with the 04 prefix.
var addressRx = regexp.MustCompile(`^04[0-9a-fA-F]{128}$`)

// =============================================================================

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Address derives the hex encoded uncompressed public key for the
// specified private key.
func Address(privateKey *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&privateKey.PublicKey))
}

// IsValidAddress validates the specified address conforms to the uncompressed
// public key format.
func IsValidAddress(address string) bool {
	return addressRx.MatchString(address)
}

// =============================================================================

// Hash returns the hex encoded sha256 hash for the specified data.
func Hash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// HexToBinary expands a hex encoded string into its binary digit form. This
// is used to check the leading zero bits required by the proof of work.
func HexToBinary(h string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(h) * 4)

	for _, c := range h {
		n, err := hex.DecodeString(fmt.Sprintf("0%c", c))
		if err != nil {
			return "", fmt.Errorf("invalid hex character %q", c)
		}
		sb.WriteString(fmt.Sprintf("%04b", n[0]))
	}

	return sb.String(), nil
}

// =============================================================================

// Sign produces a DER encoded, hex string signature of the specified message
// using the private key. The message is expected to be a hex encoded hash.
func Sign(privateKey *ecdsa.PrivateKey, msg string) (string, error) {
	digest, err := hex.DecodeString(msg)
	if err != nil {
		return "", fmt.Errorf("message is not a hex encoded hash: %w", err)
	}

	priv := secp256k1.PrivKeyFromBytes(crypto.FromECDSA(privateKey))
	sig := dcrecdsa.Sign(priv, digest)

	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks a DER encoded, hex string signature of the specified message
// against the public key behind the address.
func Verify(address string, msg string, sigHex string) bool {
	return verify(address, msg, sigHex) == nil
}

// verify carries the cause of a failed verification for callers that log.
func verify(address string, msg string, sigHex string) error {
	if !IsValidAddress(address) {
		return errors.New("invalid address")
	}

	digest, err := hex.DecodeString(msg)
	if err != nil {
		return fmt.Errorf("message is not a hex encoded hash: %w", err)
	}

	pubBytes, err := hex.DecodeString(address)
	if err != nil {
		return fmt.Errorf("decoding address: %w", err)
	}

	pubKey, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}

	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	sig, err := dcrecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}

	if !sig.Verify(digest, pubKey) {
		return errors.New("signature does not verify")
	}

	return nil
}
