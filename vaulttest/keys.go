package vaulttest

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/crypto"
)

// NewKey returns a freshly generated private key. It panics if the key
// cannot be generated, which is acceptable in tests only.
func NewKey() crypto.PrivateKey {
	key, err := crypto.GenPrivateKey()
	if err != nil {
		panic(err)
	}
	return key
}

// NewCondition returns a condition of a freshly generated key.
func NewCondition() vault.Condition {
	return NewKey().PublicKey().Condition()
}
