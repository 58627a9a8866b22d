package app

import (
	"encoding/json"
	"io/ioutil"
	"time"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

// Genesis file format.
type Genesis struct {
	ChainID  string        `json:"chain_id"`
	AppState vault.Options `json:"app_state"`
}

// LoadGenesis tries to load a given file into a Genesis struct
func LoadGenesis(filePath string) (*Genesis, error) {
	raw, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "loading genesis file: %s", err)
	}
	var gen Genesis
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshaling genesis file: %s", err)
	}
	if !vault.IsValidChainID(gen.ChainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %q", gen.ChainID)
	}
	return &gen, nil
}

// ChainInitializers lets you initialize many extensions with one function
func ChainInitializers(inits ...vault.Initializer) vault.Initializer {
	return chainInitializer{inits: inits}
}

type chainInitializer struct {
	inits []vault.Initializer
}

// FromGenesis will pass opts to all Initializers in the list,
// aborting at the first error.
func (c chainInitializer) FromGenesis(opts vault.Options, kv vault.KVStore) error {
	for _, i := range c.inits {
		if err := i.FromGenesis(opts, kv); err != nil {
			return err
		}
	}
	return nil
}

// _vt: is a prefix for application internal data
const (
	chainIDKey   = "_vt:chainID"
	blockTimeKey = "_vt:blockTime"
)

// loadChainID returns the chain id stored if any
func loadChainID(kv vault.ReadOnlyKVStore) (string, error) {
	v, err := kv.Get([]byte(chainIDKey))
	if err != nil {
		return "", errors.Wrap(err, "load chain id")
	}
	return string(v), nil
}

// saveChainID stores a chain id in the kv store.
// Returns error if already set, or invalid name
func saveChainID(kv vault.KVStore, chainID string) error {
	if !vault.IsValidChainID(chainID) {
		return errors.Wrapf(errors.ErrInput, "chain id: %v", chainID)
	}
	k := []byte(chainIDKey)
	exists, err := kv.Has(k)
	if err != nil {
		return errors.Wrap(err, "load chain id")
	}
	if exists {
		return errors.Wrap(errors.ErrUnauthorized, "can't modify chain id after genesis init")
	}
	if err := kv.Set(k, []byte(chainID)); err != nil {
		return errors.Wrap(err, "save chain id")
	}
	return nil
}

// loadBlockTime returns the time of the last delivered block, or zero
// before the first one.
func loadBlockTime(kv vault.ReadOnlyKVStore) (vault.UnixTime, error) {
	raw, err := kv.Get([]byte(blockTimeKey))
	if err != nil {
		return 0, errors.Wrap(err, "load block time")
	}
	if raw == nil {
		return 0, nil
	}
	t, err := orm.DecodeSequence(raw)
	if err != nil {
		return 0, errors.Wrap(err, "block time")
	}
	return vault.UnixTime(t), nil
}

// checkBlockTime fails if now is before the last delivered block.
func checkBlockTime(kv vault.ReadOnlyKVStore, now time.Time) error {
	t := vault.AsUnixTime(now)
	if err := t.Validate(); err != nil {
		return errors.Wrap(err, "block time")
	}
	last, err := loadBlockTime(kv)
	if err != nil {
		return err
	}
	if t < last {
		return errors.Wrapf(errors.ErrState, "block time %s is before the last block time %s", t, last)
	}
	return nil
}

// saveBlockTime records now as the time of the last delivered block.
func saveBlockTime(kv vault.KVStore, now time.Time) error {
	t := vault.AsUnixTime(now)
	if err := kv.Set([]byte(blockTimeKey), orm.EncodeSequence(uint64(t))); err != nil {
		return errors.Wrap(err, "save block time")
	}
	return nil
}
