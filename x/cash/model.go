package cash

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

// BucketName is where we store the balances
const BucketName = "wallet"

// Wallet is the balance of a single address.
type Wallet struct {
	Address vault.Address
	Amount  int64
}

var _ orm.Model = (*Wallet)(nil)

func (w *Wallet) Marshal() ([]byte, error) { return vault.Encode(w) }

func (w *Wallet) Unmarshal(raw []byte) error { return vault.Decode(raw, w) }

// Validate requires a valid owner and a non negative balance.
func (w *Wallet) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Address", w.Address.Validate())
	if w.Amount < 0 {
		errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
	}
	return errs
}

// NewBucket returns the bucket of wallets, keyed by the owner address.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket(BucketName, &Wallet{})
}
