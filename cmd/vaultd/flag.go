package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iov-one/vault"
)

// flAddress returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. This
// function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flAddress(fl *flag.FlagSet, name, defaultVal, usage string) *vault.Address {
	var a vault.Address
	if defaultVal != "" {
		var err error
		a, err = vault.ParseAddress(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q vault.Address flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&a, name, usage)
	return &a
}

// timeValue is a flag value accepting either RFC3339 or a UNIX timestamp.
type timeValue struct {
	t time.Time
}

func (v *timeValue) String() string {
	if v.t.IsZero() {
		return ""
	}
	return v.t.Format(time.RFC3339)
}

func (v *timeValue) Set(raw string) error {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		v.t = t
		return nil
	}
	var unix int64
	if _, err := fmt.Sscanf(raw, "%d", &unix); err != nil {
		return fmt.Errorf("time must be RFC3339 or UNIX seconds: %q", raw)
	}
	v.t = time.Unix(unix, 0)
	return nil
}

// flTime returns the block time flag. When not provided, the current time
// is used.
func flTime(fl *flag.FlagSet) func() time.Time {
	var v timeValue
	fl.Var(&v, "time", "Block time of the transaction, RFC3339 or UNIX seconds. Must not be earlier than the last block. Defaults to now.")
	return func() time.Time {
		if v.t.IsZero() {
			return time.Now()
		}
		return v.t
	}
}
