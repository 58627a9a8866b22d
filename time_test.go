package vault

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/vault/errors"
)

func TestUnixTimeUnmarshal(t *testing.T) {
	cases := map[string]struct {
		raw      string
		wantTime UnixTime
		wantErr  *errors.Error
	}{
		"zero time as number": {
			raw:      "0",
			wantTime: 0,
		},
		"zero time as string": {
			raw:      `"1970-01-01T01:00:00+01:00"`,
			wantTime: 0,
		},
		"a time as string": {
			raw:      `"2019-04-04T11:35:40.89181085+02:00"`,
			wantTime: 1554370540,
		},
		"a time as number": {
			raw:      "1554370540",
			wantTime: 1554370540,
		},
		"negative number": {
			raw:     "-1",
			wantErr: errors.ErrInput,
		},
		"negative time as string": {
			raw:     `"1950-01-01T01:00:00+01:00"`,
			wantErr: errors.ErrInput,
		},
		"invalid string": {
			raw:     `"not a time string"`,
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got UnixTime
			err := json.Unmarshal([]byte(tc.raw), &got)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %s", err)
			}
			if got != tc.wantTime {
				t.Fatalf("want %d time, got %d", tc.wantTime, got)
			}
		})
	}
}

func TestUnixTimeArithmetic(t *testing.T) {
	now := time.Now()
	unow := AsUnixTime(now)

	later := unow.Add(time.Hour + 4*time.Second)
	if now.Add(time.Hour+4*time.Second).Unix() != int64(later) {
		t.Fatalf("want %d, got %d", now.Add(time.Hour+4*time.Second).Unix(), later)
	}
	if got := later.Sub(unow); got != time.Hour+4*time.Second {
		t.Fatalf("want one hour and four seconds, got %s", got)
	}
	// Sub-second precision is dropped.
	if got := unow.Add(1500 * time.Millisecond); got != unow+1 {
		t.Fatalf("want %d, got %d", unow+1, got)
	}
	if unow.Time().Unix() != now.Unix() {
		t.Fatalf("want %d, got %d", now.Unix(), unow.Time().Unix())
	}
}

func TestUnixTimeValidate(t *testing.T) {
	if err := UnixTime(0).Validate(); err != nil {
		t.Fatalf("zero time must be valid: %s", err)
	}
	if !UnixTime(0).IsZero() || UnixTime(1).IsZero() {
		t.Fatal("only zero value is zero")
	}
	if err := UnixTime(-5).Validate(); !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %v", err)
	}
}
