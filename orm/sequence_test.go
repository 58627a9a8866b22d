package orm

import (
	"bytes"
	"testing"

	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/store"
	"github.com/iov-one/vault/vaulttest/assert"
)

func TestSequence(t *testing.T) {
	cases := map[string]struct {
		bucket     string
		name       string
		increments uint64
	}{
		"few":  {bucket: "a", name: "id", increments: 3},
		"many": {bucket: "b", name: "id", increments: 300},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			s := NewSequence(tc.bucket, tc.name)

			latest, err := s.Latest(db)
			assert.Nil(t, err)
			assert.Equal(t, uint64(0), latest)

			prev := EncodeSequence(0)
			var val uint64
			for i := uint64(0); i < tc.increments; i++ {
				raw, err := s.NextVal(db)
				assert.Nil(t, err)
				// byte order must follow numeric order
				if bytes.Compare(prev, raw) != -1 {
					t.Fatalf("%X is not greater than %X", raw, prev)
				}
				prev = raw
				val, err = DecodeSequence(raw)
				assert.Nil(t, err)
			}
			assert.Equal(t, tc.increments, val)

			latest, err = s.Latest(db)
			assert.Nil(t, err)
			assert.Equal(t, tc.increments, latest)

			next, err := s.NextInt(db)
			assert.Nil(t, err)
			assert.Equal(t, tc.increments+1, next)
		})
	}
}

func TestSequencesAreIndependent(t *testing.T) {
	db := store.MemStore()
	a := NewSequence("deposit", "id")
	b := NewSequence("events", "id")

	_, err := a.NextInt(db)
	assert.Nil(t, err)
	_, err = a.NextInt(db)
	assert.Nil(t, err)
	n, err := b.NextInt(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestDecodeSequenceInvalid(t *testing.T) {
	_, err := DecodeSequence([]byte{1, 2, 3})
	assert.IsErr(t, errors.ErrInput, err)
}
