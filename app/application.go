package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
	"github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
)

// heightSeq counts delivered transactions.
var heightSeq = orm.NewSequence("_vt", "height")

// TxDecoder can parse bytes into a Tx
type TxDecoder func(txBytes []byte) (vault.Tx, error)

// Result is the outcome of processing a transaction. A zero code means
// success, otherwise Log describes the failure.
type Result struct {
	Code         uint32
	Log          string
	Data         []byte
	Tags         []common.KVPair
	GasAllocated int64
	Height       int64
	// Ref identifies the delivery in the logs.
	Ref string
}

// IsErr returns true for a failed transaction.
func (r Result) IsErr() bool {
	return r.Code != errors.SuccessABCICode
}

// Application processes transactions against a committed store. All
// methods are safe for concurrent use, transactions are applied one by one.
type Application struct {
	mu sync.Mutex

	store   vault.CacheableKVStore
	decoder TxDecoder
	handler vault.Handler
	init    vault.Initializer
	logger  log.Logger
	debug   bool

	chainID string
}

// NewApplication returns an application working on given store. The chain
// id is loaded from the store if the genesis was already processed.
func NewApplication(store vault.CacheableKVStore, decoder TxDecoder, handler vault.Handler, init vault.Initializer) (*Application, error) {
	chainID, err := loadChainID(store)
	if err != nil {
		return nil, err
	}
	return &Application{
		store:   store,
		decoder: decoder,
		handler: handler,
		init:    init,
		logger:  log.NewNopLogger(),
		chainID: chainID,
	}, nil
}

// WithLogger sets the logger on the Application and returns it,
// to make it easy to chain in initialization
func (a *Application) WithLogger(logger log.Logger) *Application {
	a.logger = logger
	return a
}

// WithDebug exposes internal error messages in the results.
func (a *Application) WithDebug(debug bool) *Application {
	a.debug = debug
	return a
}

// ChainID returns the chain id or an empty string before the genesis was
// loaded.
func (a *Application) ChainID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chainID
}

// InitChain loads the genesis. It can be done only once per store.
func (a *Application) InitChain(gen *Genesis) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chainID != "" {
		return errors.Wrapf(errors.ErrState, "genesis already loaded for chain %s", a.chainID)
	}
	cache := a.store.CacheWrap()
	if err := saveChainID(cache, gen.ChainID); err != nil {
		cache.Discard()
		return err
	}
	if err := a.init.FromGenesis(gen.AppState, cache); err != nil {
		cache.Discard()
		return errors.Wrap(err, "genesis")
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "cannot write genesis")
	}
	a.chainID = gen.ChainID
	a.logger.Info("chain initialized", "chain_id", gen.ChainID)
	return nil
}

// Height returns the number of delivered transactions.
func (a *Application) Height() (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, err := heightSeq.Latest(a.store)
	return int64(h), err
}

// CheckTx verifies the transaction against the current state without
// modifying it. Like DeliverTx, it refuses a time earlier than the last
// block.
func (a *Application) CheckTx(now time.Time, txBytes []byte) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.loadTx(txBytes)
	if err != nil {
		return a.errResult(err, "")
	}
	if err := checkBlockTime(a.store, now); err != nil {
		return a.errResult(err, "")
	}
	h, err := heightSeq.Latest(a.store)
	if err != nil {
		return a.errResult(err, "")
	}
	ctx, err := a.context(int64(h)+1, now)
	if err != nil {
		return a.errResult(err, "")
	}
	ctx = vault.WithLogInfo(ctx, "call", "check_tx")

	cache := a.store.CacheWrap()
	defer cache.Discard()
	res, err := a.handler.Check(ctx, cache, tx)
	if err != nil {
		return a.errResult(err, "")
	}
	return Result{Data: res.Data, Log: res.Log, GasAllocated: res.GasAllocated}
}

// DeliverTx executes the transaction in a block of its own. The state
// changes are committed before returning. A failed message leaves only the
// signer nonce, height and block time changes behind. The block time must
// not be earlier than the time of the previous block.
func (a *Application) DeliverTx(now time.Time, txBytes []byte) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	ref := uuid.New().String()
	tx, err := a.loadTx(txBytes)
	if err != nil {
		return a.errResult(err, ref)
	}

	if err := checkBlockTime(a.store, now); err != nil {
		return a.errResult(err, ref)
	}
	cache := a.store.CacheWrap()
	h, err := heightSeq.NextInt(cache)
	if err != nil {
		cache.Discard()
		return a.errResult(err, ref)
	}
	if err := saveBlockTime(cache, now); err != nil {
		cache.Discard()
		return a.errResult(err, ref)
	}
	ctx, err := a.context(int64(h), now)
	if err != nil {
		cache.Discard()
		return a.errResult(err, ref)
	}
	ctx = vault.WithLogInfo(ctx, "call", "deliver_tx", "ref", ref)

	res, txErr := a.handler.Deliver(ctx, cache, tx)
	if err := cache.Write(); err != nil {
		return a.errResult(errors.Wrap(err, "cannot commit"), ref)
	}
	if txErr != nil {
		r := a.errResult(txErr, ref)
		r.Height = int64(h)
		return r
	}
	return Result{
		Data:   res.Data,
		Log:    res.Log,
		Tags:   res.Tags,
		Height: int64(h),
		Ref:    ref,
	}
}

// View runs fn against the committed state.
func (a *Application) View(fn func(db vault.ReadOnlyKVStore) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.store)
}

func (a *Application) context(height int64, now time.Time) (vault.Context, error) {
	if a.chainID == "" {
		return nil, errors.Wrap(errors.ErrState, "genesis not loaded")
	}
	ctx := context.Background()
	ctx = vault.WithChainID(ctx, a.chainID)
	ctx = vault.WithLogger(ctx, a.logger)
	ctx = vault.WithHeight(ctx, height)
	ctx = vault.WithBlockTime(ctx, now)
	return ctx, nil
}

// loadTx calls the decoder, and capture any panics
func (a *Application) loadTx(txBytes []byte) (tx vault.Tx, err error) {
	defer errors.Recover(&err)
	tx, err = a.decoder(txBytes)
	return
}

func (a *Application) errResult(err error, ref string) Result {
	code, msg := errors.ABCIInfo(err, a.debug)
	return Result{Code: code, Log: msg, Ref: ref}
}
