package utils

import (
	"fmt"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

// Recovery turns a panic of any later decorator or handler into an
// ErrPanic failure of the transaction. The panic value is logged with the
// path of the message, it is never part of the result.
type Recovery struct{}

var _ vault.Decorator = Recovery{}

// NewRecovery creates a Recovery decorator
func NewRecovery() Recovery {
	return Recovery{}
}

// Check turns panics into normal errors
func (Recovery) Check(ctx vault.Context, store vault.KVStore, tx vault.Tx, next vault.Checker) (_ *vault.CheckResult, err error) {
	defer recoverTx(ctx, tx, &err)
	return next.Check(ctx, store, tx)
}

// Deliver turns panics into normal errors
func (Recovery) Deliver(ctx vault.Context, store vault.KVStore, tx vault.Tx, next vault.Deliverer) (_ *vault.DeliverResult, err error) {
	defer recoverTx(ctx, tx, &err)
	return next.Deliver(ctx, store, tx)
}

// recoverTx must be deferred directly for recover to stop the panic.
func recoverTx(ctx vault.Context, tx vault.Tx, err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = errors.Wrapf(errors.ErrPanic, "%v", r)
	vault.GetLogger(ctx).Error("recovered from panic", "path", vault.GetPath(tx), "panic", fmt.Sprint(r))
}
