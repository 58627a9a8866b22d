package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/store"
	"github.com/iov-one/vault/vaulttest/assert"
)

type noteEvent struct {
	Note string
}

func (e *noteEvent) EventName() string          { return "test/note" }
func (e *noteEvent) Marshal() ([]byte, error)   { return vault.Encode(e) }
func (e *noteEvent) Unmarshal(raw []byte) error { return vault.Decode(raw, e) }

func TestLogEmitAndIterate(t *testing.T) {
	db := store.MemStore()
	log := NewLog()

	now := time.Unix(1554000000, 0)
	ctx := vault.WithHeight(context.Background(), 7)
	ctx = vault.WithBlockTime(ctx, now)

	for _, note := range []string{"first", "second", "third"} {
		assert.Nil(t, log.Emit(ctx, db, &noteEvent{Note: note}))
	}

	cases := map[string]struct {
		from      uint64
		wantSeqs  []uint64
		wantNotes []string
	}{
		"whole log": {
			from:      0,
			wantSeqs:  []uint64{1, 2, 3},
			wantNotes: []string{"first", "second", "third"},
		},
		"from the middle": {
			from:      2,
			wantSeqs:  []uint64{2, 3},
			wantNotes: []string{"second", "third"},
		},
		"past the end": {
			from: 4,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			it, err := log.Iterate(db, tc.from)
			assert.Nil(t, err)
			defer it.Release()

			var (
				seqs  []uint64
				notes []string
			)
			for {
				seq, rec, err := it.Next()
				if errors.ErrIteratorDone.Is(err) {
					break
				}
				assert.Nil(t, err)
				assert.Equal(t, "test/note", rec.Name)
				assert.Equal(t, int64(7), rec.Height)
				assert.Equal(t, vault.AsUnixTime(now), rec.Time)

				var e noteEvent
				assert.Nil(t, e.Unmarshal(rec.Data))
				seqs = append(seqs, seq)
				notes = append(notes, e.Note)
			}
			assert.Equal(t, tc.wantSeqs, seqs)
			assert.Equal(t, tc.wantNotes, notes)
		})
	}
}

func TestRecorder(t *testing.T) {
	db := store.MemStore()
	log := NewLog()
	rec := &Recorder{Next: log}

	assert.Nil(t, rec.Emit(context.Background(), db, &noteEvent{Note: "a"}))
	assert.Nil(t, rec.Emit(context.Background(), db, &noteEvent{Note: "b"}))
	assert.Equal(t, 2, len(rec.Events))

	tags := Tags(rec.Events...)
	assert.Equal(t, 2, len(tags))
	assert.Equal(t, []byte(TagKey), tags[0].Key)
	assert.Equal(t, []byte("test/note"), tags[1].Value)

	// events passed through the recorder are persisted
	it, err := log.Iterate(db, 0)
	assert.Nil(t, err)
	defer it.Release()
	var n int
	for {
		if _, _, err := it.Next(); errors.ErrIteratorDone.Is(err) {
			break
		} else if err != nil {
			t.Fatalf("cannot read event: %s", err)
		}
		n++
	}
	assert.Equal(t, 2, n)
}
