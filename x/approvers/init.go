package approvers

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

const optKey = "approvers"

// Genesis is the approvers section of the genesis file.
type Genesis struct {
	Owner     vault.Address   `json:"owner"`
	Approvers []vault.Address `json:"approvers"`
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ vault.Initializer = Initializer{}

// FromGenesis configures the owner and the initial approvers.
func (Initializer) FromGenesis(opts vault.Options, db vault.KVStore) error {
	var gen Genesis
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return err
	}
	if gen.Owner == nil && len(gen.Approvers) == 0 {
		return nil
	}
	if err := gen.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}

	r := NewRegistry()
	if err := r.SetOwner(db, gen.Owner); err != nil {
		return err
	}
	for i, a := range gen.Approvers {
		if err := r.AddApprover(db, gen.Owner, a); err != nil {
			return errors.Wrapf(err, "approver %d", i)
		}
	}
	return nil
}
