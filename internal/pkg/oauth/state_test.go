package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStateStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStateStore(client), mr
}

func TestStateStore_GenerateState(t *testing.T) {
	store, _ := setupStateStore(t)
	ctx := context.Background()

	state, err := store.GenerateState(ctx, "https://app.example.com/callback")

	require.NoError(t, err)
	assert.Len(t, state, 64) // 32 bytes hex encoded

	state2, err := store.GenerateState(ctx, "https://app.example.com/callback")
	require.NoError(t, err)
	assert.NotEqual(t, state, state2)
}

func TestStateStore_ValidateState(t *testing.T) {
	store, mr := setupStateStore(t)
	ctx := context.Background()

	t.Run("valid state returns redirect URI", func(t *testing.T) {
		state, err := store.GenerateState(ctx, "https://app.example.com/callback")
		require.NoError(t, err)

		uri, err := store.ValidateState(ctx, state)
		require.NoError(t, err)
		assert.Equal(t, "https://app.example.com/callback", uri)
	})

	t.Run("state is consumed after validation", func(t *testing.T) {
		state, err := store.GenerateState(ctx, "https://app.example.com/callback")
		require.NoError(t, err)

		_, err = store.ValidateState(ctx, state)
		require.NoError(t, err)

		_, err = store.ValidateState(ctx, state)
		assert.Error(t, err)
	})

	t.Run("empty state rejected", func(t *testing.T) {
		_, err := store.ValidateState(ctx, "")
		assert.Error(t, err)
	})

	t.Run("unknown state rejected", func(t *testing.T) {
		_, err := store.ValidateState(ctx, "deadbeef")
		assert.Error(t, err)
	})

	t.Run("expired state rejected", func(t *testing.T) {
		state, err := store.GenerateState(ctx, "https://app.example.com/callback")
		require.NoError(t, err)

		mr.FastForward(11 * time.Minute)

		_, err = store.ValidateState(ctx, state)
		assert.Error(t, err)
	})
}
