package errors

import (
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If only one error is provided (not nil), it is returned as it is. Given
// errors are flattened, so that appending groups results in a single group.
func Append(errs ...error) error {
	var flat []error
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if u, ok := e.(unpacker); ok {
			flat = append(flat, u.Unpack()...)
		} else {
			flat = append(flat, e)
		}
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return multiErr(flat)
}

// unpacker is implemented by errors that group several errors together.
type unpacker interface {
	Unpack() []error
}

type multiErr []error

var _ unpacker = multiErr(nil)

// Unpack returns all grouped errors.
func (errs multiErr) Unpack() []error {
	return errs
}

func (errs multiErr) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ABCICode returns the code of the first grouped error, consistent with the
// fail-fast approach.
func (errs multiErr) ABCICode() uint32 {
	return abciCode(errs[0])
}
