// Package crypto provides the ed25519 keys used to sign transactions. The
// public key of a signer is turned into the condition identifying the caller
// of every ledger operation.
package crypto

import (
	"encoding/hex"
	"strings"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"golang.org/x/crypto/ed25519"
)

const (
	// ExtensionName is used as the extension part of every signature
	// condition.
	ExtensionName = "sigs"

	// SeedSize is the size of a private key seed.
	SeedSize = ed25519.SeedSize
)

// PublicKey is an ed25519 public key.
type PublicKey []byte

// Verify verifies the signature was created with this message and public key
func (p PublicKey) Verify(message, signature []byte) bool {
	if len(p) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p), message, signature)
}

// Condition encodes the public key into a permission
func (p PublicKey) Condition() vault.Condition {
	return vault.NewCondition(ExtensionName, "ed25519", p)
}

// Address returns the address of the condition represented by this key.
func (p PublicKey) Address() vault.Address {
	return p.Condition().Address()
}

// PrivateKey is an ed25519 private key.
type PrivateKey []byte

// Sign returns a matching signature for this private key
func (p PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(p), message)
}

// PublicKey returns the corresponding PublicKey
func (p PrivateKey) PublicKey() PublicKey {
	pub := ed25519.PrivateKey(p).Public().(ed25519.PublicKey)
	return PublicKey(pub)
}

// Seed returns the seed this key was created from.
func (p PrivateKey) Seed() []byte {
	return ed25519.PrivateKey(p).Seed()
}

// GenPrivateKey returns a random new private key
func GenPrivateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrHuman, "cannot generate key: %s", err)
	}
	return PrivateKey(priv), nil
}

// PrivateKeyFromSeed will deterministically generate a private key from
// a given seed. Use if you have a strong source of external randomness,
// or for deterministic keys in test cases.
func PrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, errors.Wrapf(errors.ErrInput, "seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	return PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

// ParsePrivateKey decodes a hex encoded seed, as written by the keygen command.
func ParsePrivateKey(raw string) (PrivateKey, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "private key must be a hex encoded seed")
	}
	return PrivateKeyFromSeed(seed)
}
