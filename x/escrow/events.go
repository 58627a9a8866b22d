package escrow

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/eventlog"
)

const (
	DepositedEventName = "escrow/deposited"
	ApprovedEventName  = "escrow/approved"
	RefundedEventName  = "escrow/refunded"
	ReclaimedEventName = "escrow/reclaimed"
)

// Deposited is emitted when a new deposit is created.
type Deposited struct {
	Amount   int64
	Receiver vault.Address
	Approver vault.Address
}

func (Deposited) EventName() string            { return DepositedEventName }
func (e *Deposited) Marshal() ([]byte, error)   { return vault.Encode(e) }
func (e *Deposited) Unmarshal(raw []byte) error { return vault.Decode(raw, e) }

// Approved is emitted when a deposit is released to its receiver.
type Approved struct {
	Amount   int64
	Receiver vault.Address
}

func (Approved) EventName() string            { return ApprovedEventName }
func (e *Approved) Marshal() ([]byte, error)   { return vault.Encode(e) }
func (e *Approved) Unmarshal(raw []byte) error { return vault.Decode(raw, e) }

// Refunded is emitted when a deposit is returned to its depositor.
type Refunded struct {
	Amount    int64
	Depositor vault.Address
	Receiver  vault.Address
}

func (Refunded) EventName() string            { return RefundedEventName }
func (e *Refunded) Marshal() ([]byte, error)   { return vault.Encode(e) }
func (e *Refunded) Unmarshal(raw []byte) error { return vault.Decode(raw, e) }

// Reclaimed is emitted on every reclaim, with the total of all expired
// deposits returned to the depositor. The total is zero when nothing
// expired.
type Reclaimed struct {
	Total     int64
	Depositor vault.Address
}

func (Reclaimed) EventName() string            { return ReclaimedEventName }
func (e *Reclaimed) Marshal() ([]byte, error)   { return vault.Encode(e) }
func (e *Reclaimed) Unmarshal(raw []byte) error { return vault.Decode(raw, e) }

// DecodeEvent returns the payload of a stored escrow event.
func DecodeEvent(rec *eventlog.Record) (eventlog.Payload, error) {
	var p eventlog.Payload
	switch rec.Name {
	case DepositedEventName:
		p = &Deposited{}
	case ApprovedEventName:
		p = &Approved{}
	case RefundedEventName:
		p = &Refunded{}
	case ReclaimedEventName:
		p = &Reclaimed{}
	default:
		return nil, errors.Wrapf(errors.ErrType, "unknown event %q", rec.Name)
	}
	if err := p.Unmarshal(rec.Data); err != nil {
		return nil, err
	}
	return p, nil
}
