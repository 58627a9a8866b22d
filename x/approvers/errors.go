package approvers

import "github.com/iov-one/vault/errors"

// ErrNotOwner is returned when anyone but the configured owner attempts to
// modify the approver set.
var ErrNotOwner = errors.Register(1020, "caller is not the owner")
