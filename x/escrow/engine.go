package escrow

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/eventlog"
	"github.com/iov-one/vault/x/cash"
)

// ApproverRegistry answers whether an address may settle deposits.
type ApproverRegistry interface {
	IsApprover(db vault.ReadOnlyKVStore, addr vault.Address) (bool, error)
}

// Engine enforces the deposit lifecycle and moves the funds.
//
// Every settlement writes the new status before the funds leave the
// custody. If the transfer fails afterwards the error is returned and the
// status is kept; running inside a transaction the whole store change is
// discarded by the caller.
type Engine struct {
	ledger   *Ledger
	registry ApproverRegistry
	bank     cash.CoinMover
	sink     eventlog.Sink
	window   int64
}

// NewEngine returns an engine. The window is the number of seconds after
// which a pending deposit can be reclaimed.
func NewEngine(ledger *Ledger, registry ApproverRegistry, bank cash.CoinMover, sink eventlog.Sink, window int64) *Engine {
	return &Engine{
		ledger:   ledger,
		registry: registry,
		bank:     bank,
		sink:     sink,
		window:   window,
	}
}

// Window returns the expiration window in seconds.
func (e *Engine) Window() int64 {
	return e.window
}

// DepositFor moves attached funds from the depositor into custody and
// records a pending deposit. The attached value must be equal to the
// amount.
func (e *Engine) DepositFor(ctx vault.Context, db vault.KVStore, depositor vault.Address, amount int64, receiver, approver vault.Address, attached int64) (uint64, error) {
	if attached != amount {
		return 0, errors.Wrapf(ErrAmountMismatch, "amount %d, attached %d", amount, attached)
	}
	if amount <= 0 {
		return 0, errors.Wrapf(errors.ErrAmount, "non-positive amount: %d", amount)
	}
	if err := receiver.Validate(); err != nil {
		return 0, errors.Wrap(err, "receiver")
	}
	if err := approver.Validate(); err != nil {
		return 0, errors.Wrap(err, "approver")
	}
	now, err := blockTime(ctx)
	if err != nil {
		return 0, err
	}

	if err := e.bank.MoveCoins(db, depositor, CustodyAddress, attached); err != nil {
		return 0, errors.Wrap(err, "cannot take deposit")
	}
	id, err := e.ledger.Create(db, amount, receiver, approver, depositor, now)
	if err != nil {
		return 0, err
	}
	if err := e.sink.Emit(ctx, db, &Deposited{Amount: amount, Receiver: receiver, Approver: approver}); err != nil {
		return 0, err
	}
	vault.GetLogger(ctx).Debug("deposit created", "id", id, "amount", amount)
	return id, nil
}

// Approve releases a pending deposit to its receiver. Only the approver
// named in the deposit can do it.
func (e *Engine) Approve(ctx vault.Context, db vault.KVStore, caller vault.Address, id uint64) error {
	if err := e.checkSettle(db, caller, id); err != nil {
		return err
	}
	d, err := e.ledger.Transition(db, id, caller, Approved)
	if err != nil {
		return err
	}
	if err := e.bank.MoveCoins(db, CustodyAddress, d.Receiver, d.Amount); err != nil {
		return errors.Wrapf(err, "cannot release deposit %d", id)
	}
	return e.sink.Emit(ctx, db, &Approved{Amount: d.Amount, Receiver: d.Receiver})
}

// Refund returns a pending deposit to its depositor. Only the approver
// named in the deposit can do it.
func (e *Engine) Refund(ctx vault.Context, db vault.KVStore, caller vault.Address, id uint64) error {
	if err := e.checkSettle(db, caller, id); err != nil {
		return err
	}
	d, err := e.ledger.Transition(db, id, caller, Refunded)
	if err != nil {
		return err
	}
	if err := e.bank.MoveCoins(db, CustodyAddress, d.Depositor, d.Amount); err != nil {
		return errors.Wrapf(err, "cannot refund deposit %d", id)
	}
	return e.sink.Emit(ctx, db, &Refunded{Amount: d.Amount, Depositor: d.Depositor, Receiver: d.Receiver})
}

// checkSettle ensures the caller may settle the deposit. Errors are
// reported in a fixed order: registry membership, existence, status and
// finally the approver named by the deposit.
func (e *Engine) checkSettle(db vault.KVStore, caller vault.Address, id uint64) error {
	ok, err := e.registry.IsApprover(db, caller)
	if err != nil {
		return errors.Wrap(err, "approver registry")
	}
	if !ok {
		return errors.Wrapf(ErrNotAnApprover, "%s not registered", caller)
	}
	d, err := e.ledger.Get(db, id)
	if err != nil {
		return err
	}
	if d.Status != Pending {
		return errors.Wrapf(ErrAlreadyTouched, "deposit %d is %s", id, d.Status)
	}
	if !d.Approver.Equals(caller) {
		return errors.Wrapf(ErrNotAnApprover, "deposit %d", id)
	}
	return nil
}

// ReclaimExpired returns to the caller all of its pending deposits that
// expired, in a single transfer. The total is returned and announced even
// when nothing expired.
func (e *Engine) ReclaimExpired(ctx vault.Context, db vault.KVStore, caller vault.Address) (int64, error) {
	now, err := blockTime(ctx)
	if err != nil {
		return 0, err
	}
	it, err := e.ledger.ListPendingExpired(db, caller, now, e.window)
	if err != nil {
		return 0, err
	}
	// The store cannot be modified while iterating.
	expired, err := Collect(it)
	if err != nil {
		return 0, errors.Wrap(err, "cannot list expired deposits")
	}

	var total int64
	for _, d := range expired {
		if _, err := e.ledger.Transition(db, d.ID, caller, Reclaimed); err != nil {
			return 0, err
		}
		total += d.Amount
	}
	if total > 0 {
		if err := e.bank.MoveCoins(db, CustodyAddress, caller, total); err != nil {
			return 0, errors.Wrap(err, "cannot return expired deposits")
		}
	}
	if err := e.sink.Emit(ctx, db, &Reclaimed{Total: total, Depositor: caller}); err != nil {
		return 0, err
	}
	vault.GetLogger(ctx).Debug("deposits reclaimed", "count", len(expired), "total", total)
	return total, nil
}

func blockTime(ctx vault.Context) (vault.UnixTime, error) {
	t, ok := vault.BlockTime(ctx)
	if !ok {
		return 0, errors.Wrap(errors.ErrHuman, "block time not present in context")
	}
	return vault.AsUnixTime(t), nil
}
