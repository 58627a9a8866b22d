package cash

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

var _ vault.Msg = (*SendMsg)(nil)

const maxMemoSize int = 128

// SendMsg moves funds from the signer account to the destination.
type SendMsg struct {
	Source      vault.Address
	Destination vault.Address
	Amount      int64
	Memo        string
}

// Path returns the routing path for this message
func (SendMsg) Path() string {
	return "cash/send"
}

func (m *SendMsg) Marshal() ([]byte, error) { return vault.Encode(m) }

func (m *SendMsg) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }

// Validate makes sure that this is sensible
func (m *SendMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Source", m.Source.Validate())
	errs = errors.AppendField(errs, "Destination", m.Destination.Validate())
	if m.Amount <= 0 {
		errs = errors.Append(errs, errors.Field("Amount", errors.ErrAmount, "must be positive, got %d", m.Amount))
	}
	if len(m.Memo) > maxMemoSize {
		errs = errors.Append(errs, errors.Field("Memo", errors.ErrState, "memo too long"))
	}
	return errs
}
