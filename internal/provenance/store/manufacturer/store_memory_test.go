package manufacturer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryAuthorize(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	ok, err := store.IsAuthorized(ctx, "0xACME")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Authorize(ctx, "0xACME", time.Now()))

	ok, err = store.IsAuthorized(ctx, "0xACME")
	require.NoError(t, err)
	assert.True(t, ok)

	// Idempotent; the set only grows.
	require.NoError(t, store.Authorize(ctx, "0xACME", time.Now().Add(time.Hour)))
	ok, err = store.IsAuthorized(ctx, "0xACME")
	require.NoError(t, err)
	assert.True(t, ok)
}
