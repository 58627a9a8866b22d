package orm

import (
	"bytes"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

// ModelIterator walks over a set of models. Once all models were loaded,
// LoadNext returns errors.ErrIteratorDone.
type ModelIterator interface {
	// LoadNext moves the iterator to the next model and loads it into the
	// passed destination. The primary key of the model is returned.
	LoadNext(dest Model) ([]byte, error)

	// Release releases the Iterator.
	Release()
}

// idModelIterator iterates over the bucket entries directly.
type idModelIterator struct {
	iterator vault.Iterator
	// this is the bucketPrefix to strip from each key
	bucketPrefix []byte
}

var _ ModelIterator = (*idModelIterator)(nil)

func (i *idModelIterator) LoadNext(dest Model) ([]byte, error) {
	key, value, err := i.iterator.Next()
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(key, i.bucketPrefix) {
		return nil, errors.Wrapf(errors.ErrDatabase, "key with unknown prefix: %X", key)
	}
	if err := dest.Unmarshal(value); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling into %T", dest)
	}
	return key[len(i.bucketPrefix):], nil
}

func (i *idModelIterator) Release() {
	i.iterator.Release()
}

// indexModelIterator iterates over primary keys found in an index and loads
// each referenced entity.
type indexModelIterator struct {
	keys  vault.Iterator
	db    vault.ReadOnlyKVStore
	dbKey func([]byte) []byte
}

var _ ModelIterator = (*indexModelIterator)(nil)

func (i *indexModelIterator) LoadNext(dest Model) ([]byte, error) {
	key, _, err := i.keys.Next()
	if err != nil {
		return nil, err
	}
	raw, err := i.db.Get(i.dbKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "loading referenced key")
	}
	if raw == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "key: %X", key)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling into %T", dest)
	}
	return key, nil
}

func (i *indexModelIterator) Release() {
	i.keys.Release()
}
