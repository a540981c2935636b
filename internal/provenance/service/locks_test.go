package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "provchain/pkg/domain"
	dErrors "provchain/pkg/domain-errors"
)

func TestProductLocksAcquireRelease(t *testing.T) {
	locks := newProductLocks(time.Second)
	productID := id.NewProductID()

	release, err := locks.Acquire(context.Background(), productID)
	require.NoError(t, err)
	release()

	// Reacquirable after release.
	release, err = locks.Acquire(context.Background(), productID)
	require.NoError(t, err)
	release()
}

func TestProductLocksTimeoutWhileHeld(t *testing.T) {
	locks := newProductLocks(20 * time.Millisecond)
	productID := id.NewProductID()

	release, err := locks.Acquire(context.Background(), productID)
	require.NoError(t, err)
	defer release()

	_, err = locks.Acquire(context.Background(), productID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestProductLocksHonorCallerDeadline(t *testing.T) {
	locks := newProductLocks(time.Minute)
	productID := id.NewProductID()

	release, err := locks.Acquire(context.Background(), productID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locks.Acquire(ctx, productID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestProductLocksDistinctProductsDoNotContend(t *testing.T) {
	locks := newProductLocks(time.Second)

	releaseA, err := locks.Acquire(context.Background(), id.NewProductID())
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locks.Acquire(context.Background(), id.NewProductID())
	require.NoError(t, err)
	defer releaseB()
}
