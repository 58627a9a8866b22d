package escrow

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

const optKey = "escrow"

// Genesis is the escrow section of the genesis file.
type Genesis struct {
	// ExpirationWindow in seconds.
	ExpirationWindow int64 `json:"expiration_window"`
}

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

var _ vault.Initializer = Initializer{}

// FromGenesis stores the escrow configuration. The section is required, a
// chain cannot run escrows without an expiration window.
func (Initializer) FromGenesis(opts vault.Options, db vault.KVStore) error {
	var gen Genesis
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return err
	}
	conf := Config{ExpirationWindow: gen.ExpirationWindow}
	if err := conf.Validate(); err != nil {
		return errors.Wrap(err, "escrow genesis")
	}
	return SaveConfig(db, conf)
}
