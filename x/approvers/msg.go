package approvers

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
)

var _ vault.Msg = (*AddApproverMsg)(nil)

// AddApproverMsg grants the approver role. It must be signed by the owner.
type AddApproverMsg struct {
	Approver vault.Address
}

// Path returns the routing path for this message
func (AddApproverMsg) Path() string {
	return "approvers/add"
}

func (m *AddApproverMsg) Marshal() ([]byte, error) { return vault.Encode(m) }

func (m *AddApproverMsg) Unmarshal(raw []byte) error { return vault.Decode(raw, m) }

func (m *AddApproverMsg) Validate() error {
	return errors.AppendField(nil, "Approver", m.Approver.Validate())
}
