package app

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/crypto"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/x/approvers"
	"github.com/iov-one/vault/x/cash"
	"github.com/iov-one/vault/x/escrow"
	"github.com/iov-one/vault/x/sigs"
	amino "github.com/tendermint/go-amino"
)

// cdc knows every message this application routes. Messages are stored in
// the transaction as an interface, prefixed by their registered name.
var cdc = newCodec()

func newCodec() *amino.Codec {
	c := amino.NewCodec()
	c.RegisterInterface((*vault.Msg)(nil), nil)
	c.RegisterConcrete(&cash.SendMsg{}, "cash/send", nil)
	c.RegisterConcrete(&approvers.AddApproverMsg{}, "approvers/add", nil)
	c.RegisterConcrete(&escrow.DepositMsg{}, "escrow/deposit", nil)
	c.RegisterConcrete(&escrow.ApproveMsg{}, "escrow/approve", nil)
	c.RegisterConcrete(&escrow.RefundMsg{}, "escrow/refund", nil)
	c.RegisterConcrete(&escrow.ReclaimMsg{}, "escrow/reclaim", nil)
	c.Seal()
	return c
}

// Tx is the only transaction format accepted by the application. It
// carries a single message and the signatures authorizing it.
type Tx struct {
	Msg        vault.Msg
	Signatures []*sigs.StdSignature
}

var _ vault.Tx = (*Tx)(nil)
var _ sigs.SignedTx = (*Tx)(nil)

// NewTx returns an unsigned transaction carrying msg.
func NewTx(msg vault.Msg) *Tx {
	return &Tx{Msg: msg}
}

// GetMsg returns the carried message.
func (tx *Tx) GetMsg() (vault.Msg, error) {
	if tx.Msg == nil {
		return nil, errors.Wrap(errors.ErrMsg, "no message")
	}
	return tx.Msg, nil
}

// GetSignatures returns all signatures.
func (tx *Tx) GetSignatures() []*sigs.StdSignature {
	return tx.Signatures
}

// GetSignBytes returns the serialized transaction without signatures.
func (tx *Tx) GetSignBytes() ([]byte, error) {
	unsigned := Tx{Msg: tx.Msg}
	return unsigned.Marshal()
}

// Sign appends a signature of key, using given signer sequence.
func (tx *Tx) Sign(key crypto.PrivateKey, chainID string, seq int64) error {
	sig, err := sigs.SignTx(key, tx, chainID, seq)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

// Marshal serializes the transaction.
func (tx *Tx) Marshal() ([]byte, error) {
	bz, err := cdc.MarshalBinaryBare(tx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrType, "cannot encode transaction: %s", err)
	}
	return bz, nil
}

// Unmarshal deserializes the transaction.
func (tx *Tx) Unmarshal(raw []byte) error {
	if err := cdc.UnmarshalBinaryBare(raw, tx); err != nil {
		return errors.Wrapf(errors.ErrType, "cannot decode transaction: %s", err)
	}
	return nil
}

// DecodeTx parses a serialized transaction.
func DecodeTx(raw []byte) (vault.Tx, error) {
	var tx Tx
	if err := tx.Unmarshal(raw); err != nil {
		return nil, err
	}
	return &tx, nil
}
