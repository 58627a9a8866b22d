package cash

import (
	"math"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

// Balancer returns the balance of an address. An address that never
// received anything has a zero balance.
type Balancer interface {
	Balance(vault.ReadOnlyKVStore, vault.Address) (int64, error)
}

// CoinMover is an interface for moving coins between accounts.
type CoinMover interface {
	// MoveCoins removes funds from the source account and adds them to the
	// destination account. This operation is atomic.
	MoveCoins(db vault.KVStore, src, dest vault.Address, amount int64) error
}

// CoinMinter is an interface to create new coins.
type CoinMinter interface {
	// CoinMint increase the number of funds in given account by a
	// specified amount.
	CoinMint(db vault.KVStore, dest vault.Address, amount int64) error
}

// Controller is the functionality needed by cash.Handler and cash.Initializer.
type Controller interface {
	Balancer
	CoinMover
	CoinMinter
}

// BaseController is the default implementation of the Controller, storing
// balances in a wallet bucket.
type BaseController struct {
	bucket orm.ModelBucket
}

var _ Controller = BaseController{}

// NewController returns a base controller
func NewController(bucket orm.ModelBucket) BaseController {
	return BaseController{bucket: bucket}
}

// Balance returns the amount owned by given address.
func (c BaseController) Balance(db vault.ReadOnlyKVStore, addr vault.Address) (int64, error) {
	w, err := c.load(db, addr)
	if err != nil {
		return 0, err
	}
	return w.Amount, nil
}

// MoveCoins moves the given amount from src to dest.
// If src doesn't have sufficient coins, it fails.
func (c BaseController) MoveCoins(db vault.KVStore, src, dest vault.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrAmount, "non-positive amount: %d", amount)
	}

	sender, err := c.load(db, src)
	if err != nil {
		return errors.Wrap(err, "sender")
	}
	if sender.Amount < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "balance %d, required %d", sender.Amount, amount)
	}
	sender.Amount -= amount
	if _, err := c.bucket.Put(db, src, sender); err != nil {
		return errors.Wrap(err, "cannot save sender")
	}

	recipient, err := c.load(db, dest)
	if err != nil {
		return errors.Wrap(err, "recipient")
	}
	if recipient.Amount > math.MaxInt64-amount {
		return errors.Wrap(errors.ErrOverflow, "recipient balance")
	}
	recipient.Amount += amount
	if _, err := c.bucket.Put(db, dest, recipient); err != nil {
		return errors.Wrap(err, "cannot save recipient")
	}
	return nil
}

// CoinMint attempts to add the given amount of coins to the destination
// address. Fails if it overflows the wallet.
func (c BaseController) CoinMint(db vault.KVStore, dest vault.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrAmount, "non-positive amount: %d", amount)
	}
	w, err := c.load(db, dest)
	if err != nil {
		return err
	}
	if w.Amount > math.MaxInt64-amount {
		return errors.Wrap(errors.ErrOverflow, "balance")
	}
	w.Amount += amount
	if _, err := c.bucket.Put(db, dest, w); err != nil {
		return errors.Wrap(err, "cannot save wallet")
	}
	return nil
}

// load returns the wallet of given address, or an empty one if the address
// was never funded.
func (c BaseController) load(db vault.ReadOnlyKVStore, addr vault.Address) (*Wallet, error) {
	if err := addr.Validate(); err != nil {
		return nil, errors.Wrap(err, "address")
	}
	var w Wallet
	switch err := c.bucket.One(db, addr, &w); {
	case err == nil:
		return &w, nil
	case errors.ErrNotFound.Is(err):
		return &Wallet{Address: addr}, nil
	default:
		return nil, err
	}
}
