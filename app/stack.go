package app

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/eventlog"
	"github.com/iov-one/vault/x"
	"github.com/iov-one/vault/x/approvers"
	"github.com/iov-one/vault/x/cash"
	"github.com/iov-one/vault/x/escrow"
	"github.com/iov-one/vault/x/sigs"
	"github.com/iov-one/vault/x/utils"
)

// Authenticator returns the typical authentication,
// just using public key signatures
func Authenticator() x.Authenticator {
	return x.ChainAuth(sigs.Authenticate{})
}

// Chain returns a chain of decorators, to handle authentication,
// logging, and recovery
func Chain() Decorators {
	return ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		// on CheckTx, bad tx don't affect state
		utils.NewSavepoint().OnCheck(),
		sigs.NewDecorator(),
		// on DeliverTx, bad tx will increment nonce
		// even if the message fails
		utils.NewSavepoint().OnDeliver(),
	)
}

// Router returns a router dispatching every message of the ledger.
func Router(authFn x.Authenticator, events eventlog.Sink) *Router {
	r := NewRouter()
	bank := cash.NewController(cash.NewBucket())
	registry := approvers.NewRegistry()
	cash.RegisterRoutes(r, authFn, bank)
	approvers.RegisterRoutes(r, authFn, registry)
	escrow.RegisterRoutes(r, authFn, registry, bank, events)
	return r
}

// Initializers returns all extensions that load state from the genesis.
func Initializers() vault.Initializer {
	return ChainInitializers(
		cash.Initializer{},
		approvers.Initializer{},
		escrow.Initializer{},
	)
}

// Stack wires up a standard router with a standard decorator chain.
func Stack(events eventlog.Sink) vault.Handler {
	authFn := Authenticator()
	return Chain().WithHandler(Router(authFn, events))
}

// New returns an application using the standard stack on given store.
// Events are stored in the same store.
func New(store vault.CacheableKVStore) (*Application, error) {
	return NewApplication(store, DecodeTx, Stack(eventlog.NewLog()), Initializers())
}
