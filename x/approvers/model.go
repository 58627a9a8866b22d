package approvers

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

const (
	// BucketName is where the approver set is stored.
	BucketName = "approver"

	configBucketName = "apprconf"
)

// configKey is the only key used in the configuration bucket.
var configKey = []byte("owner")

// Configuration holds the owner of the approver set.
type Configuration struct {
	Owner vault.Address
}

var _ orm.Model = (*Configuration)(nil)

func (c *Configuration) Marshal() ([]byte, error) { return vault.Encode(c) }

func (c *Configuration) Unmarshal(raw []byte) error { return vault.Decode(raw, c) }

func (c *Configuration) Validate() error {
	return errors.AppendField(nil, "Owner", c.Owner.Validate())
}

// Approver is a member of the approver set, stored under its own address.
type Approver struct {
	Address vault.Address
}

var _ orm.Model = (*Approver)(nil)

func (a *Approver) Marshal() ([]byte, error) { return vault.Encode(a) }

func (a *Approver) Unmarshal(raw []byte) error { return vault.Decode(raw, a) }

func (a *Approver) Validate() error {
	return errors.AppendField(nil, "Address", a.Address.Validate())
}
