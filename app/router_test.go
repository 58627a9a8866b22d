package app

import (
	"context"
	"testing"

	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/vaulttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	r := NewRouter()

	good := &vaulttest.Handler{}
	bad := &vaulttest.Handler{DeliverErr: errors.ErrAmount.New("foo")}
	r.Handle(&vaulttest.Msg{RoutePath: "test/good"}, good)
	r.Handle(&vaulttest.Msg{RoutePath: "test/bad"}, bad)

	// make sure invalid registrations panic
	assert.Panics(t, func() { r.Handle(&vaulttest.Msg{RoutePath: "test/good"}, good) })
	assert.Panics(t, func() { r.Handle(&vaulttest.Msg{RoutePath: "l:7"}, good) })

	ctx := context.Background()
	tx := func(path string) *vaulttest.Tx {
		return &vaulttest.Tx{Msg: &vaulttest.Msg{RoutePath: path}}
	}

	_, err := r.Check(ctx, nil, tx("test/good"))
	require.NoError(t, err)
	_, err = r.Deliver(ctx, nil, tx("test/good"))
	require.NoError(t, err)
	assert.Equal(t, 1, good.CheckCallCount())
	assert.Equal(t, 1, good.DeliverCallCount())

	_, err = r.Deliver(ctx, nil, tx("test/bad"))
	require.Error(t, err)
	assert.True(t, errors.ErrAmount.Is(err))
	assert.False(t, errors.ErrNotFound.Is(err))

	_, err = r.Deliver(ctx, nil, tx("test/missing"))
	assert.True(t, errors.ErrNotFound.Is(err))
	_, err = r.Check(ctx, nil, tx("test/missing"))
	assert.True(t, errors.ErrNotFound.Is(err))

	_, err = r.Check(ctx, nil, &vaulttest.Tx{Err: errors.ErrMsg})
	assert.True(t, errors.ErrMsg.Is(err))
	assert.Equal(t, 1, good.CheckCallCount())
}
