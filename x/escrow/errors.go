package escrow

import "github.com/iov-one/vault/errors"

// escrow takes 1010-1019
var (
	ErrAmountMismatch = errors.Register(1010, "Amount mismatch")
	ErrInvalidID      = errors.Register(1011, "Invalid id")
	ErrAlreadyTouched = errors.Register(1012, "Deposit status already touched")
	ErrNotAnApprover  = errors.Register(1013, "You are not an approver")
)
