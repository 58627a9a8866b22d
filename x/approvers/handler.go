package approvers

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/x"
)

const addApproverCost int64 = 50

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r vault.Registry, auth x.Authenticator, registry *Registry) {
	r.Handle(&AddApproverMsg{}, AddApproverHandler{auth: auth, registry: registry})
}

// AddApproverHandler extends the approver set.
type AddApproverHandler struct {
	auth     x.Authenticator
	registry *Registry
}

var _ vault.Handler = AddApproverHandler{}

// Check verifies the message and that the signer owns the set.
func (h AddApproverHandler) Check(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &vault.CheckResult{GasAllocated: addApproverCost}, nil
}

// Deliver adds the approver.
func (h AddApproverHandler) Deliver(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*vault.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.registry.AddApprover(db, caller, msg.Approver); err != nil {
		return nil, err
	}
	vault.GetLogger(ctx).Info("approver added", "approver", msg.Approver)
	return &vault.DeliverResult{Data: msg.Approver}, nil
}

func (h AddApproverHandler) validate(ctx vault.Context, db vault.KVStore, tx vault.Tx) (*AddApproverMsg, vault.Address, error) {
	var msg AddApproverMsg
	if err := vault.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller := x.MainSignerAddress(ctx, h.auth)
	if caller == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "signature missing")
	}
	owner, err := h.registry.Owner(db)
	if err != nil {
		return nil, nil, err
	}
	if !owner.Equals(caller) {
		return nil, nil, errors.Wrapf(ErrNotOwner, "caller %s", caller)
	}
	return &msg, caller, nil
}
