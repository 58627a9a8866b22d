package escrow

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/eventlog"
	"github.com/iov-one/vault/orm"
	"github.com/iov-one/vault/x"
	"github.com/iov-one/vault/x/cash"
)

const (
	depositCost int64 = 300
	settleCost  int64 = 50
	reclaimCost int64 = 100
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r vault.Registry, auth x.Authenticator, registry ApproverRegistry, bank cash.CoinMover, sink eventlog.Sink) {
	b := base{
		auth:     auth,
		ledger:   NewLedger(),
		registry: registry,
		bank:     bank,
		sink:     sink,
	}
	r.Handle(&DepositMsg{}, DepositHandler{b})
	r.Handle(&ApproveMsg{}, ApproveHandler{b})
	r.Handle(&RefundMsg{}, RefundHandler{b})
	r.Handle(&ReclaimMsg{}, ReclaimHandler{b})
}

// base holds the dependencies shared by all handlers.
type base struct {
	auth     x.Authenticator
	ledger   *Ledger
	registry ApproverRegistry
	bank     cash.CoinMover
	sink     eventlog.Sink
}

// engine returns an engine bound to a recorder, so that the handler can
// report the emitted events as tags.
func (b base) engine(db vault.ReadOnlyKVStore) (*Engine, *eventlog.Recorder, error) {
	conf, err := LoadConfig(db)
	if err != nil {
		return nil, nil, err
	}
	rec := &eventlog.Recorder{Next: b.sink}
	return NewEngine(b.ledger, b.registry, b.bank, rec, conf.ExpirationWindow), rec, nil
}

func (b base) caller(ctx vault.Context) (vault.Address, error) {
	addr := x.MainSignerAddress(ctx, b.auth)
	if addr == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signature missing")
	}
	return addr, nil
}

// DepositHandler creates deposits.
type DepositHandler struct {
	base
}

var _ vault.Handler = DepositHandler{}

// Check verifies the message is well formed and signed by the depositor.
func (h DepositHandler) Check(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.CheckResult, error) {
	if _, _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &vault.CheckResult{GasAllocated: depositCost}, nil
}

// Deliver moves the funds into custody and returns the id of the new
// deposit.
func (h DepositHandler) Deliver(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.DeliverResult, error) {
	msg, depositor, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	eng, rec, err := h.engine(db)
	if err != nil {
		return nil, err
	}
	id, err := eng.DepositFor(ctx, db, depositor, msg.Amount, msg.Receiver, msg.Approver, msg.Attached)
	if err != nil {
		return nil, err
	}
	return &vault.DeliverResult{
		Data: orm.EncodeSequence(id),
		Tags: eventlog.Tags(rec.Events...),
	}, nil
}

func (h DepositHandler) validate(ctx vault.Context, tx vault.Tx) (*DepositMsg, vault.Address, error) {
	var msg DepositMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if msg.Depositor == nil {
		signer, err := h.caller(ctx)
		if err != nil {
			return nil, nil, err
		}
		return &msg, signer, nil
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature missing")
	}
	return &msg, msg.Depositor, nil
}

// ApproveHandler releases deposits to their receivers.
type ApproveHandler struct {
	base
}

var _ vault.Handler = ApproveHandler{}

// Check verifies the message and that the signer can settle the deposit.
func (h ApproveHandler) Check(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.CheckResult, error) {
	var msg ApproveMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	caller, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	eng, _, err := h.engine(db)
	if err != nil {
		return nil, err
	}
	if err := eng.checkSettle(db, caller, msg.DepositID); err != nil {
		return nil, err
	}
	return &vault.CheckResult{GasAllocated: settleCost}, nil
}

// Deliver approves the deposit.
func (h ApproveHandler) Deliver(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.DeliverResult, error) {
	var msg ApproveMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	caller, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	eng, rec, err := h.engine(db)
	if err != nil {
		return nil, err
	}
	if err := eng.Approve(ctx, db, caller, msg.DepositID); err != nil {
		return nil, err
	}
	return &vault.DeliverResult{Tags: eventlog.Tags(rec.Events...)}, nil
}

// RefundHandler returns deposits to their depositors.
type RefundHandler struct {
	base
}

var _ vault.Handler = RefundHandler{}

// Check verifies the message and that the signer can settle the deposit.
func (h RefundHandler) Check(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.CheckResult, error) {
	var msg RefundMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	caller, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	eng, _, err := h.engine(db)
	if err != nil {
		return nil, err
	}
	if err := eng.checkSettle(db, caller, msg.DepositID); err != nil {
		return nil, err
	}
	return &vault.CheckResult{GasAllocated: settleCost}, nil
}

// Deliver refunds the deposit.
func (h RefundHandler) Deliver(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.DeliverResult, error) {
	var msg RefundMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	caller, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	eng, rec, err := h.engine(db)
	if err != nil {
		return nil, err
	}
	if err := eng.Refund(ctx, db, caller, msg.DepositID); err != nil {
		return nil, err
	}
	return &vault.DeliverResult{Tags: eventlog.Tags(rec.Events...)}, nil
}

// ReclaimHandler returns expired deposits to their depositor.
type ReclaimHandler struct {
	base
}

var _ vault.Handler = ReclaimHandler{}

// Check verifies the message is signed by the depositor.
func (h ReclaimHandler) Check(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.CheckResult, error) {
	if _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &vault.CheckResult{GasAllocated: reclaimCost}, nil
}

// Deliver reclaims the expired deposits. The total is returned as data.
func (h ReclaimHandler) Deliver(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.DeliverResult, error) {
	msg, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	eng, rec, err := h.engine(db)
	if err != nil {
		return nil, err
	}
	total, err := eng.ReclaimExpired(ctx, db, msg.Depositor)
	if err != nil {
		return nil, err
	}
	return &vault.DeliverResult{
		Data: orm.EncodeSequence(uint64(total)),
		Tags: eventlog.Tags(rec.Events...),
	}, nil
}

func (h ReclaimHandler) validate(ctx vault.Context, tx vault.Tx) (*ReclaimMsg, error) {
	var msg ReclaimMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Depositor) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature missing")
	}
	return &msg, nil
}
