package vaulttest

import (
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/iov-one/vault"
)

// RandomAddr returns a valid random address generated on the fly.
func RandomAddr(t testing.TB) vault.Address {
	t.Helper()
	raw := make([]byte, vault.AddressLength)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("cannot generate a random address: %s", err)
	}
	return vault.Address(raw)
}

// ParseAddress takes an address in a human readable format and returns its
// binary representation.
func ParseAddress(t testing.TB, encodedAddress string) vault.Address {
	t.Helper()

	addr, err := vault.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}

// SequenceID returns the key of the n-th element created using an orm
// sequence.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
