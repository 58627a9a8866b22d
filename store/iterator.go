package store

import (
	"bytes"

	"github.com/iov-one/vault/errors"
)

// cacheIterator joins the items of a cache layer with those of the
// parent, taking into consideration overwrites and deletes.
type cacheIterator struct {
	items []keyer
	idx   int

	parent     Iterator
	parentKey  []byte
	parentVal  []byte
	parentHas  bool
	parentDone bool

	reverse bool
}

var _ Iterator = (*cacheIterator)(nil)

func newCacheIterator(items []keyer, parent Iterator, reverse bool) *cacheIterator {
	return &cacheIterator{
		items:   items,
		parent:  parent,
		reverse: reverse,
	}
}

// source marks where the current item comes from
type source int32

const (
	us source = iota
	parent
	both
)

// Next returns the next visible key-value pair. Items deleted in the cache
// layer hide the parent value of the same key.
func (i *cacheIterator) Next() (key, value []byte, err error) {
	for {
		if err := i.peekParent(); err != nil {
			return nil, nil, err
		}
		hasOwn := i.idx < len(i.items)
		if !hasOwn && !i.parentHas {
			return nil, nil, errors.ErrIteratorDone
		}

		switch i.firstKey(hasOwn) {
		case parent:
			i.parentHas = false
			return i.parentKey, i.parentVal, nil
		case both:
			i.parentHas = false
		}

		item := i.items[i.idx]
		i.idx++
		if set, ok := item.(setItem); ok {
			return set.key, set.value, nil
		}
	}
}

// Release releases the Iterator.
func (i *cacheIterator) Release() {
	i.parent.Release()
	i.items = nil
}

// peekParent ensures the next parent item is buffered, if there is any.
func (i *cacheIterator) peekParent() error {
	if i.parentHas || i.parentDone {
		return nil
	}
	k, v, err := i.parent.Next()
	if err != nil {
		if errors.ErrIteratorDone.Is(err) {
			i.parentDone = true
			return nil
		}
		return err
	}
	i.parentKey, i.parentVal, i.parentHas = k, v, true
	return nil
}

// firstKey selects the source with the key that comes first in the
// iteration order.
func (i *cacheIterator) firstKey(hasOwn bool) source {
	if !i.parentHas {
		return us
	}
	if !hasOwn {
		return parent
	}
	cmp := bytes.Compare(i.items[i.idx].Key(), i.parentKey)
	if i.reverse {
		cmp = -cmp
	}
	switch {
	case cmp < 0:
		return us
	case cmp > 0:
		return parent
	default:
		return both
	}
}
