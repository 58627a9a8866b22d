package app

import (
	"context"
	"testing"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/vaulttest"
	"github.com/iov-one/vault/x/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicDecorator panics on every deliver.
type panicDecorator struct {
	vaulttest.Decorator
}

func (panicDecorator) Deliver(vault.Context, vault.KVStore, vault.Tx, vault.Deliverer) (*vault.DeliverResult, error) {
	panic("boom")
}

func TestChain(t *testing.T) {
	c1 := &vaulttest.Decorator{}
	c2 := &vaulttest.Decorator{}
	h := &vaulttest.Handler{}

	var nilDecorator *vaulttest.Decorator
	stack := ChainDecorators(
		c1,
		utils.NewLogging(),
		nilDecorator,
		utils.NewRecovery(),
	).Chain(
		c2,
	).WithHandler(h)

	bg := context.Background()
	_, err := stack.Check(bg, nil, nil)
	require.NoError(t, err)
	_, err = stack.Deliver(bg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c1.CheckCallCount())
	assert.Equal(t, 1, c1.DeliverCallCount())
	assert.Equal(t, 1, c2.DeliverCallCount())
	assert.Equal(t, 1, h.DeliverCallCount())

	c2.DeliverErr = errors.ErrUnauthorized
	_, err = stack.Deliver(bg, nil, nil)
	assert.True(t, errors.ErrUnauthorized.Is(err))
	assert.Equal(t, 1, h.DeliverCallCount())

	panicking := ChainDecorators(utils.NewRecovery(), &panicDecorator{}).WithHandler(h)
	_, err = panicking.Deliver(bg, nil, nil)
	assert.True(t, errors.ErrPanic.Is(err))
}
