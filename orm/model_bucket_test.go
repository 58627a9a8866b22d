package orm

import (
	"testing"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/store"
	"github.com/iov-one/vault/vaulttest/assert"
)

// counter is a minimal model used to exercise buckets.
type counter struct {
	Owner vault.Address
	Count int64
}

func (c *counter) Marshal() ([]byte, error) { return vault.Encode(c) }
func (c *counter) Unmarshal(raw []byte) error { return vault.Decode(raw, c) }

func (c *counter) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if c.Count < 0 {
		return errors.Wrap(errors.ErrModel, "negative count")
	}
	return nil
}

func ownerIndexer(m Model) ([][]byte, error) {
	c, ok := m.(*counter)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", m)
	}
	return [][]byte{c.Owner}, nil
}

func addr(b byte) vault.Address {
	a := make(vault.Address, vault.AddressLength)
	for i := range a {
		a[i] = b
	}
	return a
}

func TestModelBucket(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{})

	key, err := b.Put(db, []byte("c1"), &counter{Owner: addr(1), Count: 1})
	assert.Nil(t, err)
	assert.Equal(t, []byte("c1"), key)
	assert.Nil(t, b.Has(db, []byte("c1")))

	var c1 counter
	assert.Nil(t, b.One(db, []byte("c1"), &c1))
	assert.Equal(t, int64(1), c1.Count)

	assert.Nil(t, b.Delete(db, []byte("c1")))
	assert.IsErr(t, errors.ErrNotFound, b.Delete(db, []byte("unknown")))
	assert.IsErr(t, errors.ErrNotFound, b.One(db, []byte("c1"), &c1))
	assert.IsErr(t, errors.ErrNotFound, b.Has(db, []byte("c1")))
	assert.IsErr(t, errors.ErrNotFound, b.Has(db, nil))
}

func TestModelBucketPutValidates(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{})

	_, err := b.Put(db, nil, &counter{Owner: addr(1), Count: -4})
	assert.IsErr(t, errors.ErrModel, err)

	_, err = b.Put(db, nil, &counter{Count: 4})
	assert.IsErr(t, errors.ErrInput, err)

	// nothing was written, so the first valid entity gets the first id
	key, err := b.Put(db, nil, &counter{Owner: addr(1), Count: 4})
	assert.Nil(t, err)
	assert.Equal(t, EncodeSequence(1), key)
}

func TestModelBucketWrongType(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{})
	other := NewModelBucket("others", &otherModel{})

	_, err := other.Put(db, []byte("a"), &otherModel{Name: "a"})
	assert.Nil(t, err)

	var c counter
	assert.IsErr(t, errors.ErrType, other.One(db, []byte("a"), &c))
	_, err = b.Put(db, []byte("a"), &otherModel{Name: "a"})
	assert.IsErr(t, errors.ErrType, err)
}

type otherModel struct {
	Name string
}

func (m *otherModel) Marshal() ([]byte, error) { return vault.Encode(m) }
func (m *otherModel) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }
func (m *otherModel) Validate() error            { return nil }

func TestModelBucketSequence(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{})

	for i := uint64(1); i <= 3; i++ {
		key, err := b.Put(db, nil, &counter{Owner: addr(1), Count: int64(i)})
		assert.Nil(t, err)
		assert.Equal(t, EncodeSequence(i), key)
	}

	// explicit keys do not advance the sequence
	_, err := b.Put(db, []byte("custom"), &counter{Owner: addr(1)})
	assert.Nil(t, err)
	key, err := b.Put(db, nil, &counter{Owner: addr(1)})
	assert.Nil(t, err)
	assert.Equal(t, EncodeSequence(4), key)
}

func TestModelBucketIndexScan(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, WithIndex("owner", ownerIndexer))

	put := func(owner byte, count int64) []byte {
		key, err := b.Put(db, nil, &counter{Owner: addr(owner), Count: count})
		assert.Nil(t, err)
		return key
	}
	k1 := put(1, 10)
	put(2, 20)
	k3 := put(1, 30)

	cases := map[string]struct {
		owner    vault.Address
		wantKeys [][]byte
		wantVals []int64
	}{
		"two entries": {
			owner:    addr(1),
			wantKeys: [][]byte{k1, k3},
			wantVals: []int64{10, 30},
		},
		"no entries": {
			owner: addr(3),
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			it, err := b.IndexScan(db, "owner", tc.owner)
			assert.Nil(t, err)
			defer it.Release()

			var (
				keys [][]byte
				vals []int64
			)
			for {
				var c counter
				key, err := it.LoadNext(&c)
				if errors.ErrIteratorDone.Is(err) {
					break
				}
				assert.Nil(t, err)
				keys = append(keys, key)
				vals = append(vals, c.Count)
			}
			assert.Equal(t, tc.wantKeys, keys)
			assert.Equal(t, tc.wantVals, vals)
		})
	}

	_, err := b.IndexScan(db, "unknown", addr(1))
	assert.IsErr(t, ErrInvalidIndex, err)
}

func TestModelBucketIndexFollowsUpdates(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{}, WithIndex("owner", ownerIndexer))

	key, err := b.Put(db, nil, &counter{Owner: addr(1), Count: 1})
	assert.Nil(t, err)

	// moving the entity to another owner must drop the old index entry
	_, err = b.Put(db, key, &counter{Owner: addr(2), Count: 1})
	assert.Nil(t, err)
	assert.Equal(t, 0, countIndexed(t, db, b, addr(1)))
	assert.Equal(t, 1, countIndexed(t, db, b, addr(2)))

	assert.Nil(t, b.Delete(db, key))
	assert.Equal(t, 0, countIndexed(t, db, b, addr(2)))
}

func countIndexed(t *testing.T, db vault.ReadOnlyKVStore, b ModelBucket, owner vault.Address) int {
	t.Helper()
	it, err := b.IndexScan(db, "owner", owner)
	assert.Nil(t, err)
	defer it.Release()
	var n int
	for {
		if _, err := it.LoadNext(&counter{}); errors.ErrIteratorDone.Is(err) {
			return n
		} else if err != nil {
			t.Fatalf("cannot load: %s", err)
		}
		n++
	}
}

func TestModelBucketPrefixScan(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnts", &counter{})
	others := NewModelBucket("cntsx", &counter{})

	for _, k := range []string{"a1", "a2", "b1"} {
		_, err := b.Put(db, []byte(k), &counter{Owner: addr(1)})
		assert.Nil(t, err)
	}
	_, err := others.Put(db, []byte("a3"), &counter{Owner: addr(1)})
	assert.Nil(t, err)

	scan := func(prefix []byte, reverse bool) []string {
		it, err := b.PrefixScan(db, prefix, reverse)
		assert.Nil(t, err)
		defer it.Release()
		var keys []string
		for {
			key, err := it.LoadNext(&counter{})
			if errors.ErrIteratorDone.Is(err) {
				return keys
			}
			assert.Nil(t, err)
			keys = append(keys, string(key))
		}
	}

	assert.Equal(t, []string{"a1", "a2", "b1"}, scan(nil, false))
	assert.Equal(t, []string{"a1", "a2"}, scan([]byte("a"), false))
	assert.Equal(t, []string{"b1", "a2", "a1"}, scan(nil, true))
}
