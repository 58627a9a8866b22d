/*
Package eventlog persists the notifications emitted by the ledger
extensions. Every event is stored under a strictly increasing sequence
number together with the height and the block time of the transaction that
emitted it, so that clients can follow the log from any position.
*/
package eventlog

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
	"github.com/tendermint/tendermint/libs/common"
)

// BucketName is where the events are stored.
const BucketName = "event"

// TagKey is the key of the tag added to the deliver result for every
// emitted event.
const TagKey = "event"

// Payload is the body of a single event.
type Payload interface {
	vault.Persistent
	// EventName is the stable name of the event kind, for example
	// "escrow/deposited".
	EventName() string
}

// Sink accepts emitted events.
type Sink interface {
	Emit(ctx vault.Context, db vault.KVStore, p Payload) error
}

// Record is a stored event.
type Record struct {
	Name   string
	Height int64
	Time   vault.UnixTime
	Data   []byte
}

var _ orm.Model = (*Record)(nil)

func (r *Record) Marshal() ([]byte, error) { return vault.Encode(r) }

func (r *Record) Unmarshal(raw []byte) error { return vault.Decode(raw, r) }

func (r *Record) Validate() error {
	if r.Name == "" {
		return errors.Field("Name", errors.ErrEmpty, "event name required")
	}
	return nil
}

// Log is the persistent Sink. Events are keyed by a sequence, so the log
// iterates in emission order.
type Log struct {
	bucket orm.ModelBucket
}

var _ Sink = (*Log)(nil)

// NewLog returns an event log.
func NewLog() *Log {
	return &Log{bucket: orm.NewModelBucket(BucketName, &Record{})}
}

// Emit stores the event. Events emitted while handling a transaction are
// written together with all other changes of that transaction, or
// discarded with them.
func (l *Log) Emit(ctx vault.Context, db vault.KVStore, p Payload) error {
	data, err := p.Marshal()
	if err != nil {
		return errors.Wrapf(err, "cannot marshal %s", p.EventName())
	}
	rec := Record{
		Name: p.EventName(),
		Data: data,
	}
	if h, ok := vault.GetHeight(ctx); ok {
		rec.Height = h
	}
	if t, ok := vault.BlockTime(ctx); ok {
		rec.Time = vault.AsUnixTime(t)
	}
	if _, err := l.bucket.Put(db, nil, &rec); err != nil {
		return errors.Wrap(err, "cannot store event")
	}
	vault.GetLogger(ctx).Debug("event emitted", "name", rec.Name)
	return nil
}

// Iterate returns an iterator over all events with sequence greater or equal
// to fromSeq. Sequences start at 1, so zero iterates over the whole log.
func (l *Log) Iterate(db vault.ReadOnlyKVStore, fromSeq uint64) (*Iterator, error) {
	it, err := l.bucket.PrefixScan(db, nil, false)
	if err != nil {
		return nil, err
	}
	return &Iterator{models: it, from: fromSeq}, nil
}

// Iterator walks over stored events in emission order.
type Iterator struct {
	models orm.ModelIterator
	from   uint64
}

// Next returns the sequence and the next event. It returns
// errors.ErrIteratorDone once all events were read.
func (it *Iterator) Next() (uint64, *Record, error) {
	for {
		var rec Record
		key, err := it.models.LoadNext(&rec)
		if err != nil {
			return 0, nil, err
		}
		seq, err := orm.DecodeSequence(key)
		if err != nil {
			return 0, nil, errors.Wrap(err, "event key")
		}
		if seq >= it.from {
			return seq, &rec, nil
		}
	}
}

// Release releases the Iterator.
func (it *Iterator) Release() {
	it.models.Release()
}

// Tags returns the deliver result tags announcing given events.
func Tags(events ...Payload) []common.KVPair {
	tags := make([]common.KVPair, 0, len(events))
	for _, e := range events {
		tags = append(tags, common.KVPair{
			Key:   []byte(TagKey),
			Value: []byte(e.EventName()),
		})
	}
	return tags
}

// Recorder is a Sink that keeps emitted events in memory. It is useful when
// the events of a single operation must be inspected, for example to build
// the deliver result tags.
type Recorder struct {
	Next   Sink
	Events []Payload
}

var _ Sink = (*Recorder)(nil)

// Emit remembers the event and passes it to the next sink, if any.
func (r *Recorder) Emit(ctx vault.Context, db vault.KVStore, p Payload) error {
	if r.Next != nil {
		if err := r.Next.Emit(ctx, db, p); err != nil {
			return err
		}
	}
	r.Events = append(r.Events, p)
	return nil
}
