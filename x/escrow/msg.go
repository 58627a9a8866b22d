package escrow

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

var (
	_ vault.Msg = (*DepositMsg)(nil)
	_ vault.Msg = (*ApproveMsg)(nil)
	_ vault.Msg = (*RefundMsg)(nil)
	_ vault.Msg = (*ReclaimMsg)(nil)
)

const (
	pathDepositMsg = "escrow/deposit"
	pathApproveMsg = "escrow/approve"
	pathRefundMsg  = "escrow/refund"
	pathReclaimMsg = "escrow/reclaim"
)

// DepositMsg places Attached funds in custody for the receiver. Depositor
// defaults to the main signer of the transaction.
type DepositMsg struct {
	Depositor vault.Address
	Amount    int64
	Attached  int64
	Receiver  vault.Address
	Approver  vault.Address
}

func (DepositMsg) Path() string {
	return pathDepositMsg
}

func (m *DepositMsg) Marshal() ([]byte, error) { return vault.Encode(m) }

func (m *DepositMsg) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }

// Validate does not compare the amount with the attached value, the engine
// reports a mismatch.
func (m *DepositMsg) Validate() error {
	var errs error
	if m.Depositor != nil {
		errs = errors.AppendField(errs, "Depositor", m.Depositor.Validate())
	}
	// Any difference, including a negative attached value, is a mismatch.
	if m.Amount == m.Attached && m.Amount <= 0 {
		errs = errors.Append(errs, errors.Field("Amount", errors.ErrAmount, "must be positive, got %d", m.Amount))
	}
	errs = errors.AppendField(errs, "Receiver", m.Receiver.Validate())
	errs = errors.AppendField(errs, "Approver", m.Approver.Validate())
	return errs
}

// ApproveMsg releases a deposit to its receiver.
type ApproveMsg struct {
	DepositID uint64
}

func (ApproveMsg) Path() string {
	return pathApproveMsg
}

func (m *ApproveMsg) Marshal() ([]byte, error) { return vault.Encode(m) }

func (m *ApproveMsg) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }

// Validate accepts any id, unknown ones are rejected when handled.
func (m *ApproveMsg) Validate() error {
	return nil
}

// RefundMsg returns a deposit to its depositor.
type RefundMsg struct {
	DepositID uint64
}

func (RefundMsg) Path() string {
	return pathRefundMsg
}

func (m *RefundMsg) Marshal() ([]byte, error) { return vault.Encode(m) }

func (m *RefundMsg) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }

func (m *RefundMsg) Validate() error {
	return nil
}

// ReclaimMsg returns all expired deposits of the depositor. Depositor must
// sign the transaction.
type ReclaimMsg struct {
	Depositor vault.Address
}

func (ReclaimMsg) Path() string {
	return pathReclaimMsg
}

func (m *ReclaimMsg) Marshal() ([]byte, error) { return vault.Encode(m) }

func (m *ReclaimMsg) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }

func (m *ReclaimMsg) Validate() error {
	return errors.AppendField(nil, "Depositor", m.Depositor.Validate())
}
