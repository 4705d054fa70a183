package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/lock"
	"github.com/slok/ordersaga/internal/lock/memory"
)

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLocker()

	release, err := l.Lock(ctx, "tx-1:offer-1", time.Minute)
	require.NoError(t, err)

	_, err = l.Lock(ctx, "tx-1:offer-1", time.Minute)
	assert.ErrorIs(t, err, lock.ErrLocked)

	// Other keys are independent.
	_, err = l.Lock(ctx, "tx-1:offer-2", time.Minute)
	assert.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = l.Lock(ctx, "tx-1:offer-1", time.Minute)
	assert.NoError(t, err)
}

func TestLockerExpiry(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLocker()

	release, err := l.Lock(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	release2, err := l.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)

	// The expired owner can't release the new one.
	require.NoError(t, release(ctx))
	_, err = l.Lock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, lock.ErrLocked)

	require.NoError(t, release2(ctx))
}
