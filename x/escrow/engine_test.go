package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/eventlog"
	"github.com/iov-one/vault/store"
	"github.com/iov-one/vault/vaulttest"
	"github.com/iov-one/vault/vaulttest/assert"
	"github.com/iov-one/vault/x/approvers"
	"github.com/iov-one/vault/x/cash"
)

const testWindow = 3600

var genesisTime = time.Unix(1550000000, 0)

type fixture struct {
	db       store.CacheableKVStore
	ledger   *Ledger
	registry *approvers.Registry
	bank     cash.Controller
	events   *eventlog.Recorder
	engine   *Engine

	depositor vault.Address
	receiver  vault.Address
	approver  vault.Address
}

func newFixture(t testing.TB, funds int64) *fixture {
	t.Helper()

	f := &fixture{
		db:        store.MemStore(),
		ledger:    NewLedger(),
		registry:  approvers.NewRegistry(),
		bank:      cash.NewController(cash.NewBucket()),
		events:    &eventlog.Recorder{Next: eventlog.NewLog()},
		depositor: vaulttest.RandomAddr(t),
		receiver:  vaulttest.RandomAddr(t),
		approver:  vaulttest.RandomAddr(t),
	}
	owner := vaulttest.RandomAddr(t)
	assert.Nil(t, f.registry.SetOwner(f.db, owner))
	assert.Nil(t, f.registry.AddApprover(f.db, owner, f.approver))
	if funds > 0 {
		assert.Nil(t, f.bank.CoinMint(f.db, f.depositor, funds))
	}
	f.engine = NewEngine(f.ledger, f.registry, f.bank, f.events, testWindow)
	return f
}

func atTime(t time.Time) vault.Context {
	return vault.WithBlockTime(context.Background(), t)
}

func (f *fixture) balance(t testing.TB, a vault.Address) int64 {
	t.Helper()
	b, err := f.bank.Balance(f.db, a)
	assert.Nil(t, err)
	return b
}

func (f *fixture) status(t testing.TB, id uint64) Status {
	t.Helper()
	d, err := f.ledger.Get(f.db, id)
	assert.Nil(t, err)
	return d.Status
}

func (f *fixture) lastEvent(t testing.TB) eventlog.Payload {
	t.Helper()
	if len(f.events.Events) == 0 {
		t.Fatal("no event emitted")
	}
	return f.events.Events[len(f.events.Events)-1]
}

func TestDepositFor(t *testing.T) {
	f := newFixture(t, 500)
	ctx := atTime(genesisTime)

	id, err := f.engine.DepositFor(ctx, f.db, f.depositor, 100, f.receiver, f.approver, 100)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, int64(400), f.balance(t, f.depositor))
	assert.Equal(t, int64(100), f.balance(t, CustodyAddress))
	assert.Equal(t, &Deposited{Amount: 100, Receiver: f.receiver, Approver: f.approver}, f.lastEvent(t))

	d, err := f.ledger.Get(f.db, id)
	assert.Nil(t, err)
	assert.Equal(t, Pending, d.Status)
	assert.Equal(t, vault.AsUnixTime(genesisTime), d.CreatedAt)

	id, err = f.engine.DepositFor(ctx, f.db, f.depositor, 10, f.receiver, f.approver, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestDepositForFailures(t *testing.T) {
	cases := map[string]struct {
		amount   int64
		attached int64
		receiver bool
		wantErr  *errors.Error
	}{
		"attached more than amount": {
			amount:   10,
			attached: 11,
			receiver: true,
			wantErr:  ErrAmountMismatch,
		},
		"attached less than amount": {
			amount:   10,
			attached: 0,
			receiver: true,
			wantErr:  ErrAmountMismatch,
		},
		"zero amount": {
			receiver: true,
			wantErr:  errors.ErrAmount,
		},
		"missing receiver": {
			amount:   10,
			attached: 10,
			wantErr:  errors.ErrInput,
		},
		"insufficient funds": {
			amount:   1000,
			attached: 1000,
			receiver: true,
			wantErr:  errors.ErrInsufficientAmount,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, 100)
			var receiver vault.Address
			if tc.receiver {
				receiver = f.receiver
			}
			_, err := f.engine.DepositFor(atTime(genesisTime), f.db, f.depositor, tc.amount, receiver, f.approver, tc.attached)
			assert.IsErr(t, tc.wantErr, err)

			last, err := f.ledger.LastID(f.db)
			assert.Nil(t, err)
			assert.Equal(t, uint64(0), last)
			assert.Equal(t, int64(100), f.balance(t, f.depositor))
			assert.Equal(t, 0, len(f.events.Events))
		})
	}
}

func TestDepositForRequiresBlockTime(t *testing.T) {
	f := newFixture(t, 100)
	_, err := f.engine.DepositFor(context.Background(), f.db, f.depositor, 10, f.receiver, f.approver, 10)
	assert.IsErr(t, errors.ErrHuman, err)
}

func TestApproveAndRefund(t *testing.T) {
	f := newFixture(t, 300)
	ctx := atTime(genesisTime)

	a, err := f.engine.DepositFor(ctx, f.db, f.depositor, 100, f.receiver, f.approver, 100)
	assert.Nil(t, err)
	b, err := f.engine.DepositFor(ctx, f.db, f.depositor, 50, f.receiver, f.approver, 50)
	assert.Nil(t, err)

	assert.Nil(t, f.engine.Approve(ctx, f.db, f.approver, a))
	assert.Equal(t, Approved, f.status(t, a))
	assert.Equal(t, int64(100), f.balance(t, f.receiver))
	assert.Equal(t, &Approved{Amount: 100, Receiver: f.receiver}, f.lastEvent(t))

	assert.Nil(t, f.engine.Refund(ctx, f.db, f.approver, b))
	assert.Equal(t, Refunded, f.status(t, b))
	assert.Equal(t, int64(200), f.balance(t, f.depositor))
	assert.Equal(t, &Refunded{Amount: 50, Depositor: f.depositor, Receiver: f.receiver}, f.lastEvent(t))
	assert.Equal(t, int64(0), f.balance(t, CustodyAddress))

	emitted := len(f.events.Events)
	for _, id := range []uint64{a, b} {
		assert.IsErr(t, ErrAlreadyTouched, f.engine.Approve(ctx, f.db, f.approver, id))
		assert.IsErr(t, ErrAlreadyTouched, f.engine.Refund(ctx, f.db, f.approver, id))
	}
	assert.Equal(t, emitted, len(f.events.Events))
	assert.Equal(t, int64(100), f.balance(t, f.receiver))
}

func TestSettleCheckOrder(t *testing.T) {
	cases := map[string]struct {
		caller  func(t testing.TB, f *fixture) vault.Address
		id      uint64
		wantErr *errors.Error
	}{
		"unregistered caller is checked before the id": {
			caller:  func(t testing.TB, f *fixture) vault.Address { return f.receiver },
			id:      99,
			wantErr: ErrNotAnApprover,
		},
		"zero id": {
			caller:  func(t testing.TB, f *fixture) vault.Address { return f.approver },
			id:      0,
			wantErr: ErrInvalidID,
		},
		"id never issued": {
			caller:  func(t testing.TB, f *fixture) vault.Address { return f.approver },
			id:      3,
			wantErr: ErrInvalidID,
		},
		"settled deposit is checked before its approver": {
			caller:  func(t testing.TB, f *fixture) vault.Address { return f.registeredStranger(t) },
			id:      2,
			wantErr: ErrAlreadyTouched,
		},
		"registered approver of another deposit": {
			caller:  func(t testing.TB, f *fixture) vault.Address { return f.registeredStranger(t) },
			id:      1,
			wantErr: ErrNotAnApprover,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, 100)
			ctx := atTime(genesisTime)
			_, err := f.engine.DepositFor(ctx, f.db, f.depositor, 10, f.receiver, f.approver, 10)
			assert.Nil(t, err)
			settled, err := f.engine.DepositFor(ctx, f.db, f.depositor, 10, f.receiver, f.approver, 10)
			assert.Nil(t, err)
			assert.Nil(t, f.engine.Approve(ctx, f.db, f.approver, settled))

			caller := tc.caller(t, f)
			assert.IsErr(t, tc.wantErr, f.engine.Approve(ctx, f.db, caller, tc.id))
			assert.IsErr(t, tc.wantErr, f.engine.Refund(ctx, f.db, caller, tc.id))
			assert.Equal(t, Pending, f.status(t, 1))
		})
	}
}

// registeredStranger returns a registered approver that is not named by any
// deposit.
func (f *fixture) registeredStranger(t testing.TB) vault.Address {
	owner, err := f.registry.Owner(f.db)
	assert.Nil(t, err)
	addr := vaulttest.RandomAddr(t)
	assert.Nil(t, f.registry.AddApprover(f.db, owner, addr))
	return addr
}

func TestReclaimScenario(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := atTime(genesisTime)

	a, err := f.engine.DepositFor(ctx, f.db, f.depositor, 100, f.receiver, f.approver, 100)
	assert.Nil(t, err)
	assert.Nil(t, f.engine.Approve(ctx, f.db, f.approver, a))
	assert.Equal(t, int64(100), f.balance(t, f.receiver))

	b, err := f.engine.DepositFor(ctx, f.db, f.depositor, 50, f.receiver, f.approver, 50)
	assert.Nil(t, err)
	assert.Nil(t, f.engine.Refund(ctx, f.db, f.approver, b))
	assert.Equal(t, int64(900), f.balance(t, f.depositor))

	c, err := f.engine.DepositFor(ctx, f.db, f.depositor, 75, f.receiver, f.approver, 75)
	assert.Nil(t, err)
	assert.Equal(t, int64(825), f.balance(t, f.depositor))

	total, err := f.engine.ReclaimExpired(ctx, f.db, f.depositor)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, &Reclaimed{Total: 0, Depositor: f.depositor}, f.lastEvent(t))
	assert.Equal(t, Pending, f.status(t, c))

	later := atTime(genesisTime.Add(4000 * time.Second))
	total, err = f.engine.ReclaimExpired(later, f.db, f.depositor)
	assert.Nil(t, err)
	assert.Equal(t, int64(75), total)
	assert.Equal(t, &Reclaimed{Total: 75, Depositor: f.depositor}, f.lastEvent(t))
	assert.Equal(t, Reclaimed, f.status(t, c))
	assert.Equal(t, int64(900), f.balance(t, f.depositor))
	assert.Equal(t, int64(0), f.balance(t, CustodyAddress))

	total, err = f.engine.ReclaimExpired(later, f.db, f.depositor)
	assert.Nil(t, err)
	assert.Equal(t, int64(0), total)
	assert.IsErr(t, ErrAlreadyTouched, f.engine.Approve(later, f.db, f.approver, c))
}

func TestReclaimCombinesDeposits(t *testing.T) {
	f := newFixture(t, 1000)
	other := vaulttest.RandomAddr(t)
	assert.Nil(t, f.bank.CoinMint(f.db, other, 100))

	start := genesisTime
	for i, amount := range []int64{10, 20, 30} {
		ctx := atTime(start.Add(time.Duration(i) * time.Hour))
		_, err := f.engine.DepositFor(ctx, f.db, f.depositor, amount, f.receiver, f.approver, amount)
		assert.Nil(t, err)
	}
	_, err := f.engine.DepositFor(atTime(start), f.db, other, 40, f.receiver, f.approver, 40)
	assert.Nil(t, err)

	// Exactly one window after the second deposit.
	now := atTime(start.Add(time.Hour + testWindow*time.Second))
	total, err := f.engine.ReclaimExpired(now, f.db, f.depositor)
	assert.Nil(t, err)
	assert.Equal(t, int64(30), total)
	assert.Equal(t, Reclaimed, f.status(t, 1))
	assert.Equal(t, Reclaimed, f.status(t, 2))
	assert.Equal(t, Pending, f.status(t, 3))
	assert.Equal(t, Pending, f.status(t, 4))
	assert.Equal(t, int64(970), f.balance(t, f.depositor))
	assert.Equal(t, int64(70), f.balance(t, CustodyAddress))
}

// reentrantMover calls back into the engine the first time funds leave the
// custody.
type reentrantMover struct {
	cash.CoinMover
	engine *Engine
	ctx    vault.Context
	caller vault.Address
	id     uint64
	err    error
}

func (m *reentrantMover) MoveCoins(db vault.KVStore, src, dest vault.Address, amount int64) error {
	if src.Equals(CustodyAddress) && m.engine != nil {
		e := m.engine
		m.engine = nil
		m.err = e.Approve(m.ctx, db, m.caller, m.id)
	}
	return m.CoinMover.MoveCoins(db, src, dest, amount)
}

func TestReentrantSettlementIsRejected(t *testing.T) {
	f := newFixture(t, 100)
	ctx := atTime(genesisTime)
	mover := &reentrantMover{CoinMover: f.bank, ctx: ctx, caller: f.approver}
	eng := NewEngine(f.ledger, f.registry, mover, f.events, testWindow)

	id, err := eng.DepositFor(ctx, f.db, f.depositor, 100, f.receiver, f.approver, 100)
	assert.Nil(t, err)

	mover.engine = eng
	mover.id = id
	assert.Nil(t, eng.Refund(ctx, f.db, f.approver, id))
	assert.IsErr(t, ErrAlreadyTouched, mover.err)

	assert.Equal(t, Refunded, f.status(t, id))
	assert.Equal(t, int64(100), f.balance(t, f.depositor))
	assert.Equal(t, int64(0), f.balance(t, f.receiver))
}

// failingMover rejects every transfer out of the custody.
type failingMover struct {
	cash.CoinMover
}

func (m failingMover) MoveCoins(db vault.KVStore, src, dest vault.Address, amount int64) error {
	if src.Equals(CustodyAddress) {
		return errors.Wrap(errors.ErrUnauthorized, "recipient rejects funds")
	}
	return m.CoinMover.MoveCoins(db, src, dest, amount)
}

func TestFailedTransferKeepsStatus(t *testing.T) {
	f := newFixture(t, 100)
	ctx := atTime(genesisTime)
	eng := NewEngine(f.ledger, f.registry, failingMover{f.bank}, f.events, testWindow)

	id, err := eng.DepositFor(ctx, f.db, f.depositor, 100, f.receiver, f.approver, 100)
	assert.Nil(t, err)

	// Running in a discarded cache wrap leaves the store untouched.
	cache := f.db.CacheWrap()
	assert.IsErr(t, errors.ErrUnauthorized, eng.Approve(ctx, cache, f.approver, id))
	d, err := f.ledger.Get(cache, id)
	assert.Nil(t, err)
	assert.Equal(t, Approved, d.Status)
	cache.Discard()
	assert.Equal(t, Pending, f.status(t, id))

	// Without it the status write is kept.
	assert.IsErr(t, errors.ErrUnauthorized, eng.Approve(ctx, f.db, f.approver, id))
	assert.Equal(t, Approved, f.status(t, id))
	assert.Equal(t, int64(100), f.balance(t, CustodyAddress))
}
