package store

import (
	"bytes"
	"time"

	"github.com/boltdb/bolt"
	"github.com/iov-one/vault/errors"
)

// DefaultBucket is the bolt bucket holding all the application state.
const DefaultBucket = "vault"

// BoltStore is a KVStore persisted in a single bolt database file. Every
// write is a separate bolt transaction unless it goes through a batch. Use
// CacheWrap to group all writes of a single application transaction.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

var _ CacheableKVStore = (*BoltStore)(nil)

// OpenBolt opens (or creates) a bolt database at the given path and ensures
// the state bucket exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %q: %s", path, err)
	}
	bucket := []byte(DefaultBucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(errors.ErrDatabase, "create bucket: %s", err)
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns a copy of the value stored under the key, or nil.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get(key); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return value, nil
}

// Has returns true if a value is stored under the key.
func (s *BoltStore) Has(key []byte) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}

// Set stores the value under the key.
func (s *BoltStore) Set(key, value []byte) error {
	return s.update([]Op{SetOp(key, value)})
}

// Delete removes the key. Deleting a missing key is not an error.
func (s *BoltStore) Delete(key []byte) error {
	return s.update([]Op{DelOp(key)})
}

// NewBatch returns a batch that writes all its operations in a single bolt
// transaction.
func (s *BoltStore) NewBatch() Batch {
	return &boltBatch{store: s}
}

// CacheWrap returns a btree cache on top of this store. Writing the cache
// flushes all changes atomically.
func (s *BoltStore) CacheWrap() KVCacheWrap {
	return BTreeCacheable{KVStore: s}.CacheWrap()
}

// Iterator returns all pairs within [start, end) in ascending order. Pairs
// are read lazily, one page per bolt transaction.
func (s *BoltStore) Iterator(start, end []byte) (Iterator, error) {
	return &boltIterator{store: s, start: start, end: end}, nil
}

// ReverseIterator returns all pairs within [start, end) in descending order.
func (s *BoltStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return &boltIterator{store: s, start: start, end: end, reverse: true}, nil
}

// boltPageSize is the number of pairs an iterator copies out of a single
// read transaction.
var boltPageSize = 256

// boltIterator does not hold a bolt transaction between calls. Every page
// continues right after the last key returned by the previous one.
type boltIterator struct {
	store      *BoltStore
	start, end []byte
	reverse    bool

	page []Model
	last []byte
	done bool
}

var _ Iterator = (*boltIterator)(nil)

func (it *boltIterator) Next() ([]byte, []byte, error) {
	if len(it.page) == 0 {
		if it.done {
			return nil, nil, errors.ErrIteratorDone
		}
		if err := it.fill(); err != nil {
			return nil, nil, err
		}
		if len(it.page) == 0 {
			return nil, nil, errors.ErrIteratorDone
		}
	}
	m := it.page[0]
	it.page = it.page[1:]
	return m.Key, m.Value, nil
}

func (it *boltIterator) Release() {
	it.page = nil
	it.done = true
}

func (it *boltIterator) fill() error {
	err := it.store.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(it.store.bucket).Cursor()
		if it.reverse {
			it.fillReverse(c)
		} else {
			it.fillForward(c)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if n := len(it.page); n > 0 {
		it.last = it.page[n-1].Key
	}
	return nil
}

func (it *boltIterator) fillForward(c *bolt.Cursor) {
	var k, v []byte
	switch {
	case it.last != nil:
		if k, v = c.Seek(it.last); bytes.Equal(k, it.last) {
			k, v = c.Next()
		}
	case it.start != nil:
		k, v = c.Seek(it.start)
	default:
		k, v = c.First()
	}
	for ; k != nil && (it.end == nil || bytes.Compare(k, it.end) < 0); k, v = c.Next() {
		if len(it.page) == boltPageSize {
			return
		}
		it.page = append(it.page, copyPair(k, v))
	}
	it.done = true
}

func (it *boltIterator) fillReverse(c *bolt.Cursor) {
	// The page starts right before the pivot, which is excluded.
	pivot := it.last
	if pivot == nil {
		pivot = it.end
	}
	var k, v []byte
	if pivot == nil {
		k, v = c.Last()
	} else if k, v = c.Seek(pivot); k == nil {
		k, v = c.Last()
	} else {
		k, v = c.Prev()
	}
	for ; k != nil && (it.start == nil || bytes.Compare(k, it.start) >= 0); k, v = c.Prev() {
		if len(it.page) == boltPageSize {
			return
		}
		it.page = append(it.page, copyPair(k, v))
	}
	it.done = true
}

func (s *BoltStore) update(ops []Op) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, op := range ops {
			var err error
			switch op.kind {
			case setKind:
				err = b.Put(op.key, op.value)
			case delKind:
				err = b.Delete(op.key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func copyPair(k, v []byte) Model {
	return Pair(append([]byte{}, k...), append([]byte{}, v...))
}

type boltBatch struct {
	store *BoltStore
	ops   []Op
}

var _ Batch = (*boltBatch)(nil)

func (b *boltBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *boltBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

// Write applies all operations in a single bolt transaction.
func (b *boltBatch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	if err := b.store.update(b.ops); err != nil {
		return err
	}
	b.ops = nil
	return nil
}
