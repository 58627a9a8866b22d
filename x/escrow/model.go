package escrow

import (
	"fmt"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

// Status is the lifecycle state of a deposit.
type Status int32

const (
	Pending Status = iota + 1
	Approved
	Refunded
	Reclaimed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Refunded:
		return "refunded"
	case Reclaimed:
		return "reclaimed"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Validate returns an error if the status is not a known one.
func (s Status) Validate() error {
	if s < Pending || s > Reclaimed {
		return errors.Wrapf(errors.ErrState, "unknown status %d", int32(s))
	}
	return nil
}

// Terminal returns true for every status but Pending.
func (s Status) Terminal() bool {
	return s != Pending
}

// CustodyAddress holds the funds of all deposits that were not settled yet.
var CustodyAddress = vault.NewCondition("escrow", "custody", []byte("vault")).Address()

// Deposit is a single amount held in custody.
type Deposit struct {
	ID        uint64
	Amount    int64
	Depositor vault.Address
	Receiver  vault.Address
	Approver  vault.Address
	CreatedAt vault.UnixTime
	Status    Status
}

var _ orm.Model = (*Deposit)(nil)

func (d *Deposit) Marshal() ([]byte, error) { return vault.Encode(d) }

func (d *Deposit) Unmarshal(raw []byte) error { return vault.Decode(raw, d) }

// Validate ensures the deposit is consistent.
func (d *Deposit) Validate() error {
	var errs error
	if d.ID == 0 {
		errs = errors.Append(errs, errors.Field("ID", errors.ErrEmpty, "id required"))
	}
	if d.Amount <= 0 {
		errs = errors.Append(errs, errors.Field("Amount", errors.ErrAmount, "must be positive, got %d", d.Amount))
	}
	errs = errors.AppendField(errs, "Depositor", d.Depositor.Validate())
	errs = errors.AppendField(errs, "Receiver", d.Receiver.Validate())
	errs = errors.AppendField(errs, "Approver", d.Approver.Validate())
	errs = errors.AppendField(errs, "CreatedAt", d.CreatedAt.Validate())
	errs = errors.AppendField(errs, "Status", d.Status.Validate())
	return errs
}

// Expired returns true if the deposit age reached the window.
func (d *Deposit) Expired(now vault.UnixTime, window int64) bool {
	return int64(now-d.CreatedAt) >= window
}

// Config holds the parameters fixed when the chain is created.
type Config struct {
	// ExpirationWindow is the number of seconds after which a pending
	// deposit can be reclaimed by its depositor.
	ExpirationWindow int64
}

var _ orm.Model = (*Config)(nil)

func (c *Config) Marshal() ([]byte, error) { return vault.Encode(c) }

func (c *Config) Unmarshal(raw []byte) error { return vault.Decode(raw, c) }

func (c *Config) Validate() error {
	if c.ExpirationWindow <= 0 {
		return errors.Field("ExpirationWindow", errors.ErrInput, "must be positive, got %d", c.ExpirationWindow)
	}
	return nil
}

const configBucketName = "escrowconf"

var configKey = []byte("config")

func newConfigBucket() orm.ModelBucket {
	return orm.NewModelBucket(configBucketName, &Config{})
}

// SaveConfig stores the configuration. It can be done only once.
func SaveConfig(db vault.KVStore, c Config) error {
	b := newConfigBucket()
	switch err := b.Has(db, configKey); {
	case err == nil:
		return errors.Wrap(errors.ErrImmutable, "escrow configuration")
	case !errors.ErrNotFound.Is(err):
		return err
	}
	_, err := b.Put(db, configKey, &c)
	return errors.Wrap(err, "cannot save configuration")
}

// LoadConfig returns the stored configuration.
func LoadConfig(db vault.ReadOnlyKVStore) (*Config, error) {
	var c Config
	if err := newConfigBucket().One(db, configKey, &c); err != nil {
		return nil, errors.Wrap(err, "escrow configuration")
	}
	return &c, nil
}
