package approvers

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

// Registry is the owner controlled set of approvers. It keeps no state of
// its own, all data lives in the store passed to every call.
type Registry struct {
	config  orm.ModelBucket
	members orm.ModelBucket
}

// NewRegistry returns a registry using the default buckets.
func NewRegistry() *Registry {
	return &Registry{
		config:  orm.NewModelBucket(configBucketName, &Configuration{}),
		members: orm.NewModelBucket(BucketName, &Approver{}),
	}
}

// SetOwner configures the owner of the set. It can be done only once,
// usually while loading the genesis.
func (r *Registry) SetOwner(db vault.KVStore, owner vault.Address) error {
	switch err := r.config.Has(db, configKey); {
	case err == nil:
		return errors.Wrap(errors.ErrImmutable, "owner already configured")
	case !errors.ErrNotFound.Is(err):
		return err
	}
	_, err := r.config.Put(db, configKey, &Configuration{Owner: owner})
	return errors.Wrap(err, "cannot save configuration")
}

// Owner returns the configured owner.
func (r *Registry) Owner(db vault.ReadOnlyKVStore) (vault.Address, error) {
	var c Configuration
	if err := r.config.One(db, configKey, &c); err != nil {
		return nil, errors.Wrap(err, "owner configuration")
	}
	return c.Owner, nil
}

// AddApprover grants identity the approver role. Only the owner can call
// it. Adding an existing member does nothing.
func (r *Registry) AddApprover(db vault.KVStore, caller, identity vault.Address) error {
	owner, err := r.Owner(db)
	if err != nil {
		return err
	}
	if !owner.Equals(caller) {
		return errors.Wrapf(ErrNotOwner, "caller %s", caller)
	}
	if err := identity.Validate(); err != nil {
		return errors.Wrap(err, "identity")
	}
	if ok, err := r.IsApprover(db, identity); err != nil || ok {
		return err
	}
	if _, err := r.members.Put(db, identity, &Approver{Address: identity}); err != nil {
		return errors.Wrap(err, "cannot save approver")
	}
	return nil
}

// IsApprover returns true if the identity was granted the approver role.
func (r *Registry) IsApprover(db vault.ReadOnlyKVStore, identity vault.Address) (bool, error) {
	if len(identity) == 0 {
		return false, nil
	}
	switch err := r.members.Has(db, identity); {
	case err == nil:
		return true, nil
	case errors.ErrNotFound.Is(err):
		return false, nil
	default:
		return false, err
	}
}

// Approvers returns all members in address order.
func (r *Registry) Approvers(db vault.ReadOnlyKVStore) ([]vault.Address, error) {
	it, err := r.members.PrefixScan(db, nil, false)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var res []vault.Address
	for {
		var a Approver
		switch _, err := it.LoadNext(&a); {
		case err == nil:
			res = append(res, a.Address)
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, err
		}
	}
}
