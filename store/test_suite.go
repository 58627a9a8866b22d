package store

import (
	"testing"

	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/vaulttest/assert"
)

// TestSuite runs the same KVStore checks against any store implementation.
// Only the constructor differs between the in-memory btree and bolt tests.
type TestSuite struct {
	makeBase TestStoreConstructor
}

type TestStoreConstructor func(t testing.TB) (base CacheableKVStore, cleanup func())

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{
		makeBase: constructor,
	}
}

// GetSet does basic sanity checks on our cache
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase(t)
	defer cleanup()

	k, v := []byte("french"), []byte("fry")
	s.AssertGetHas(t, base, k, nil, false)
	assert.Nil(t, base.Set(k, v))
	s.AssertGetHas(t, base, k, v, true)

	// writing more data to a cache is only visible in the cache
	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, k, v, true)
	k2, v2 := []byte("LA"), []byte("Dodgers")
	assert.Nil(t, cache.Set(k2, v2))
	s.AssertGetHas(t, cache, k2, v2, true)
	s.AssertGetHas(t, base, k2, nil, false)

	assert.Nil(t, cache.Write())
	s.AssertGetHas(t, base, k, v, true)
	s.AssertGetHas(t, base, k2, v2, true)

	// discarded changes never reach the base
	k3, v3 := []byte("Bayern"), []byte("Munich")
	c2 := base.CacheWrap()
	assert.Nil(t, c2.Set(k3, v3))
	assert.Nil(t, c2.Delete(k))
	c2.Discard()
	s.AssertGetHas(t, base, k, v, true)
	s.AssertGetHas(t, base, k3, nil, false)

	c3 := base.CacheWrap()
	assert.Nil(t, c3.Delete(k))
	s.AssertGetHas(t, c3, k, nil, false)
	assert.Nil(t, c3.Write())
	s.AssertGetHas(t, base, k, nil, false)
	s.AssertGetHas(t, base, k2, v2, true)
}

// CacheConflicts checks that we can handle
// overwriting values and deleting underlying values
func (s *TestSuite) CacheConflicts(t *testing.T) {
	ks := [][]byte{[]byte("k0"), []byte("k1"), []byte("k2"), []byte("k3")}
	vs := [][]byte{[]byte("v0"), []byte("v1"), []byte("v2"), []byte("v3")}

	cases := map[string]struct {
		parentOps     []Op
		childOps      []Op
		parentQueries []Model // Key is what we query, Value is what we expect
		childQueries  []Model
	}{
		"overwrite one, delete another, add a third": {
			parentOps:     []Op{SetOp(ks[1], vs[1]), SetOp(ks[2], vs[2])},
			childOps:      []Op{SetOp(ks[1], vs[3]), SetOp(ks[3], vs[0]), DelOp(ks[2])},
			parentQueries: []Model{Pair(ks[1], vs[1]), Pair(ks[2], vs[2]), Pair(ks[3], nil)},
			childQueries:  []Model{Pair(ks[1], vs[3]), Pair(ks[2], nil), Pair(ks[3], vs[0])},
		},
		"set and delete the same key": {
			parentOps:     []Op{SetOp(ks[0], vs[0])},
			childOps:      []Op{SetOp(ks[1], vs[1]), DelOp(ks[1]), DelOp(ks[0])},
			parentQueries: []Model{Pair(ks[0], vs[0]), Pair(ks[1], nil)},
			childQueries:  []Model{Pair(ks[0], nil), Pair(ks[1], nil)},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			parent, cleanup := s.makeBase(t)
			defer cleanup()

			for _, op := range tc.parentOps {
				assert.Nil(t, op.Apply(parent))
			}
			child := parent.CacheWrap()
			for _, op := range tc.childOps {
				assert.Nil(t, op.Apply(child))
			}

			for _, q := range tc.parentQueries {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
			for _, q := range tc.childQueries {
				s.AssertGetHas(t, child, q.Key, q.Value, q.Value != nil)
			}

			// writing the child makes the parent look like the child
			assert.Nil(t, child.Write())
			for _, q := range tc.childQueries {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
		})
	}
}

// Iteration ensures that the cache layer and the base are merged in order,
// both ascending and descending, honoring deletes and range boundaries.
func (s *TestSuite) Iteration(t *testing.T) {
	base, cleanup := s.makeBase(t)
	defer cleanup()

	for _, k := range []string{"a", "c", "e", "g"} {
		assert.Nil(t, base.Set([]byte(k), []byte("base-"+k)))
	}
	cache := base.CacheWrap()
	assert.Nil(t, cache.Set([]byte("b"), []byte("cache-b")))
	assert.Nil(t, cache.Set([]byte("c"), []byte("cache-c")))
	assert.Nil(t, cache.Delete([]byte("e")))
	assert.Nil(t, cache.Set([]byte("h"), []byte("cache-h")))

	cases := map[string]struct {
		store      ReadOnlyKVStore
		start, end []byte
		reverse    bool
		want       []Model
	}{
		"base, full range": {
			store: base,
			want: []Model{
				Pair([]byte("a"), []byte("base-a")),
				Pair([]byte("c"), []byte("base-c")),
				Pair([]byte("e"), []byte("base-e")),
				Pair([]byte("g"), []byte("base-g")),
			},
		},
		"cache, full range": {
			store: cache,
			want: []Model{
				Pair([]byte("a"), []byte("base-a")),
				Pair([]byte("b"), []byte("cache-b")),
				Pair([]byte("c"), []byte("cache-c")),
				Pair([]byte("g"), []byte("base-g")),
				Pair([]byte("h"), []byte("cache-h")),
			},
		},
		"cache, bounded range": {
			store: cache,
			start: []byte("b"),
			end:   []byte("g"),
			want: []Model{
				Pair([]byte("b"), []byte("cache-b")),
				Pair([]byte("c"), []byte("cache-c")),
			},
		},
		"cache, reverse": {
			store:   cache,
			reverse: true,
			want: []Model{
				Pair([]byte("h"), []byte("cache-h")),
				Pair([]byte("g"), []byte("base-g")),
				Pair([]byte("c"), []byte("cache-c")),
				Pair([]byte("b"), []byte("cache-b")),
				Pair([]byte("a"), []byte("base-a")),
			},
		},
		"cache, reverse bounded": {
			store:   cache,
			start:   []byte("c"),
			end:     []byte("h"),
			reverse: true,
			want: []Model{
				Pair([]byte("g"), []byte("base-g")),
				Pair([]byte("c"), []byte("cache-c")),
			},
		},
		"empty range": {
			store: cache,
			start: []byte("x"),
			end:   []byte("z"),
			want:  nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var (
				it  Iterator
				err error
			)
			if tc.reverse {
				it, err = tc.store.ReverseIterator(tc.start, tc.end)
			} else {
				it, err = tc.store.Iterator(tc.start, tc.end)
			}
			assert.Nil(t, err)
			defer it.Release()

			var got []Model
			for {
				k, v, err := it.Next()
				if errors.ErrIteratorDone.Is(err) {
					break
				}
				assert.Nil(t, err)
				got = append(got, Pair(k, v))
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

// AssertGetHas makes sure that this key returns
// the given value or nil, and has returns true or false
func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}
