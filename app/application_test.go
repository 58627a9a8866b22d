package app

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/crypto"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/eventlog"
	"github.com/iov-one/vault/orm"
	"github.com/iov-one/vault/store"
	"github.com/iov-one/vault/vaulttest"
	"github.com/iov-one/vault/x/approvers"
	"github.com/iov-one/vault/x/cash"
	"github.com/iov-one/vault/x/escrow"
	"github.com/iov-one/vault/x/sigs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = "test-chain"

// signer keeps track of the nonce of a key.
type signer struct {
	key crypto.PrivateKey
	seq int64
}

func newSigner() *signer {
	return &signer{key: vaulttest.NewKey()}
}

func (s *signer) addr() vault.Address {
	return s.key.PublicKey().Address()
}

func (s *signer) tx(t testing.TB, msg vault.Msg) []byte {
	t.Helper()
	tx := NewTx(msg)
	require.NoError(t, tx.Sign(s.key, testChainID, s.seq))
	s.seq++
	raw, err := tx.Marshal()
	require.NoError(t, err)
	return raw
}

func newTestApp(t testing.TB, owner, approver, depositor *signer) *Application {
	t.Helper()

	state := fmt.Sprintf(`{
		"cash": [{"address": "%s", "amount": 1000}],
		"approvers": {"owner": "%s", "approvers": ["%s"]},
		"escrow": {"expiration_window": 3600}
	}`, depositor.addr(), owner.addr(), approver.addr())
	var opts vault.Options
	require.NoError(t, json.Unmarshal([]byte(state), &opts))

	a, err := New(store.MemStore())
	require.NoError(t, err)
	require.NoError(t, a.InitChain(&Genesis{ChainID: testChainID, AppState: opts}))
	assert.Equal(t, testChainID, a.ChainID())
	return a
}

func balance(t testing.TB, a *Application, addr vault.Address) int64 {
	t.Helper()
	var b int64
	err := a.View(func(db vault.ReadOnlyKVStore) error {
		var err error
		b, err = cash.NewController(cash.NewBucket()).Balance(db, addr)
		return err
	})
	require.NoError(t, err)
	return b
}

func TestApplicationScenario(t *testing.T) {
	owner, approver, depositor := newSigner(), newSigner(), newSigner()
	receiver := vaulttest.RandomAddr(t)
	a := newTestApp(t, owner, approver, depositor)

	start := time.Unix(1550000000, 0)
	deposit := func(amount int64) Result {
		msg := &escrow.DepositMsg{Amount: amount, Attached: amount, Receiver: receiver, Approver: approver.addr()}
		return a.DeliverTx(start, depositor.tx(t, msg))
	}

	res := deposit(100)
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, orm.EncodeSequence(1), res.Data)
	assert.Equal(t, int64(1), res.Height)
	assert.NotEmpty(t, res.Ref)
	assert.Equal(t, []byte(eventlog.TagKey), res.Tags[0].Key)

	res = a.DeliverTx(start, approver.tx(t, &escrow.ApproveMsg{DepositID: 1}))
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, int64(100), balance(t, a, receiver))

	res = deposit(50)
	require.False(t, res.IsErr(), res.Log)
	res = a.DeliverTx(start, approver.tx(t, &escrow.RefundMsg{DepositID: 2}))
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, int64(900), balance(t, a, depositor.addr()))

	res = deposit(75)
	require.False(t, res.IsErr(), res.Log)

	reclaim := &escrow.ReclaimMsg{Depositor: depositor.addr()}
	res = a.DeliverTx(start, depositor.tx(t, reclaim))
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, orm.EncodeSequence(0), res.Data)

	res = a.DeliverTx(start.Add(4000*time.Second), depositor.tx(t, reclaim))
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, orm.EncodeSequence(75), res.Data)
	assert.Equal(t, int64(900), balance(t, a, depositor.addr()))
	assert.Equal(t, int64(0), balance(t, a, escrow.CustodyAddress))

	// A settled deposit cannot be touched again.
	res = a.DeliverTx(start.Add(4000*time.Second), approver.tx(t, &escrow.ApproveMsg{DepositID: 3}))
	assert.Equal(t, escrow.ErrAlreadyTouched.ABCICode(), res.Code)

	height, err := a.Height()
	require.NoError(t, err)
	assert.Equal(t, int64(8), height)

	var events []string
	err = a.View(func(db vault.ReadOnlyKVStore) error {
		it, err := eventlog.NewLog().Iterate(db, 0)
		if err != nil {
			return err
		}
		defer it.Release()
		for {
			_, rec, err := it.Next()
			if errors.ErrIteratorDone.Is(err) {
				return nil
			}
			if err != nil {
				return err
			}
			events = append(events, rec.Name)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		escrow.DepositedEventName, escrow.ApprovedEventName,
		escrow.DepositedEventName, escrow.RefundedEventName,
		escrow.DepositedEventName,
		escrow.ReclaimedEventName, escrow.ReclaimedEventName,
	}, events)
}

func TestApplicationErrors(t *testing.T) {
	owner, approver, depositor := newSigner(), newSigner(), newSigner()
	stranger := newSigner()
	receiver := vaulttest.RandomAddr(t)
	a := newTestApp(t, owner, approver, depositor)
	now := time.Unix(1550000000, 0)

	res := a.DeliverTx(now, []byte("not a transaction"))
	assert.True(t, res.IsErr())

	unsigned, err := NewTx(&escrow.ApproveMsg{DepositID: 1}).Marshal()
	require.NoError(t, err)
	res = a.DeliverTx(now, unsigned)
	assert.Equal(t, errors.ErrUnauthorized.ABCICode(), res.Code)

	mismatch := &escrow.DepositMsg{Amount: 10, Attached: 5, Receiver: receiver, Approver: approver.addr()}
	res = a.DeliverTx(now, depositor.tx(t, mismatch))
	assert.Equal(t, escrow.ErrAmountMismatch.ABCICode(), res.Code)
	assert.Equal(t, int64(1000), balance(t, a, depositor.addr()))

	// The nonce of a failed transaction is consumed.
	res = a.DeliverTx(now, depositor.tx(t, &escrow.DepositMsg{Amount: 10, Attached: 10, Receiver: receiver, Approver: approver.addr()}))
	require.False(t, res.IsErr(), res.Log)
	err = a.View(func(db vault.ReadOnlyKVStore) error {
		seq, err := sigs.NextSequence(db, depositor.key.PublicKey())
		assert.Equal(t, int64(2), seq)
		return err
	})
	require.NoError(t, err)

	res = a.DeliverTx(now, stranger.tx(t, &escrow.ApproveMsg{DepositID: 1}))
	assert.Equal(t, escrow.ErrNotAnApprover.ABCICode(), res.Code)
	res = a.DeliverTx(now, approver.tx(t, &escrow.RefundMsg{DepositID: 9}))
	assert.Equal(t, escrow.ErrInvalidID.ABCICode(), res.Code)
	res = a.DeliverTx(now, stranger.tx(t, &approvers.AddApproverMsg{Approver: stranger.addr()}))
	assert.Equal(t, approvers.ErrNotOwner.ABCICode(), res.Code)

	res = a.DeliverTx(now, owner.tx(t, &approvers.AddApproverMsg{Approver: stranger.addr()}))
	require.False(t, res.IsErr(), res.Log)
	res = a.DeliverTx(now, stranger.tx(t, &escrow.ApproveMsg{DepositID: 1}))
	assert.Equal(t, escrow.ErrNotAnApprover.ABCICode(), res.Code)

	// Replaying a transaction fails on the nonce.
	raw := approver.tx(t, &escrow.ApproveMsg{DepositID: 1})
	res = a.DeliverTx(now, raw)
	require.False(t, res.IsErr(), res.Log)
	res = a.DeliverTx(now, raw)
	assert.Equal(t, sigs.ErrInvalidSequence.ABCICode(), res.Code)
}

func TestBlockTimeNeverGoesBack(t *testing.T) {
	owner, approver, depositor := newSigner(), newSigner(), newSigner()
	receiver := vaulttest.RandomAddr(t)
	a := newTestApp(t, owner, approver, depositor)
	now := time.Unix(1550000000, 0)

	deposit := &escrow.DepositMsg{Amount: 10, Attached: 10, Receiver: receiver, Approver: approver.addr()}
	res := a.DeliverTx(now, depositor.tx(t, deposit))
	require.False(t, res.IsErr(), res.Log)

	// A backdated deposit would be reclaimable right away.
	backdated := depositor.tx(t, deposit)
	res = a.CheckTx(now.Add(-24*time.Hour), backdated)
	assert.Equal(t, errors.ErrState.ABCICode(), res.Code)
	res = a.DeliverTx(now.Add(-24*time.Hour), backdated)
	assert.Equal(t, errors.ErrState.ABCICode(), res.Code)
	assert.Equal(t, int64(990), balance(t, a, depositor.addr()))

	height, err := a.Height()
	require.NoError(t, err)
	assert.Equal(t, int64(1), height, "rejected block must not be counted")

	// The rejected transaction did not consume the nonce, so it can be
	// delivered at a valid time.
	res = a.DeliverTx(now, backdated)
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, orm.EncodeSequence(2), res.Data)

	reclaim := &escrow.ReclaimMsg{Depositor: depositor.addr()}
	res = a.DeliverTx(now.Add(time.Second), depositor.tx(t, reclaim))
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, orm.EncodeSequence(0), res.Data)
	assert.Equal(t, int64(20), balance(t, a, escrow.CustodyAddress))

	// A failed transaction still moves the clock forward.
	res = a.DeliverTx(now.Add(time.Hour), approver.tx(t, &escrow.ApproveMsg{DepositID: 9}))
	assert.Equal(t, escrow.ErrInvalidID.ABCICode(), res.Code)
	res = a.CheckTx(now.Add(time.Minute), approver.tx(t, &escrow.ApproveMsg{DepositID: 1}))
	assert.Equal(t, errors.ErrState.ABCICode(), res.Code)
}

func TestCheckTxDoesNotModifyState(t *testing.T) {
	owner, approver, depositor := newSigner(), newSigner(), newSigner()
	a := newTestApp(t, owner, approver, depositor)
	now := time.Unix(1550000000, 0)

	send := &cash.SendMsg{Source: depositor.addr(), Destination: owner.addr(), Amount: 10}
	raw := depositor.tx(t, send)
	res := a.CheckTx(now, raw)
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, int64(0), balance(t, a, owner.addr()))

	res = a.DeliverTx(now, raw)
	require.False(t, res.IsErr(), res.Log)
	assert.Equal(t, int64(10), balance(t, a, owner.addr()))

	res = a.CheckTx(now, raw)
	assert.Equal(t, sigs.ErrInvalidSequence.ABCICode(), res.Code)
}

func TestInitChainOnce(t *testing.T) {
	owner, approver, depositor := newSigner(), newSigner(), newSigner()
	a := newTestApp(t, owner, approver, depositor)
	err := a.InitChain(&Genesis{ChainID: "other-chain"})
	assert.True(t, errors.ErrState.Is(err))

	fresh, err := New(store.MemStore())
	require.NoError(t, err)
	res := fresh.DeliverTx(time.Now(), depositor.tx(t, &escrow.ApproveMsg{DepositID: 1}))
	assert.Equal(t, errors.ErrState.ABCICode(), res.Code)
	err = fresh.InitChain(&Genesis{ChainID: testChainID, AppState: vault.Options{}})
	assert.True(t, errors.ErrInput.Is(err), "escrow window is required")
}
