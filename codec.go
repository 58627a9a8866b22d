package vault

import (
	"github.com/iov-one/vault/errors"
	amino "github.com/tendermint/go-amino"
)

// cdc is shared by all models and messages. None of them carries an
// interface field, so no concrete type registration is needed.
var cdc = amino.NewCodec()

// Encode serializes given structure using the binary amino encoding. Models
// and messages implement the Persistent interface on top of it.
func Encode(o interface{}) ([]byte, error) {
	bz, err := cdc.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrType, "cannot encode %T: %s", o, err)
	}
	return bz, nil
}

// Decode deserializes given amino binary representation into ptr.
func Decode(raw []byte, ptr interface{}) error {
	if err := cdc.UnmarshalBinaryBare(raw, ptr); err != nil {
		return errors.Wrapf(errors.ErrType, "cannot decode %T: %s", ptr, err)
	}
	return nil
}
