package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_LocalCache(t *testing.T) {
	c, _, err := Open(CacheConfig{LocalGCInterval: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Get(ctx, "grid:vault")
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsNotFound(nil))

	require.NoError(t, c.Set(ctx, "grid:vault", "..#", 0))
	v, err := c.Get(ctx, "grid:vault")
	require.NoError(t, err)
	assert.Equal(t, "..#", v)
}

func TestOpen_LocalPubSub(t *testing.T) {
	_, ps, err := Open(CacheConfig{LocalPubSubBuf: 4})
	require.NoError(t, err)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "guard_alert")
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, "guard_alert", "x"))

	select {
	case msg := <-ch:
		assert.Equal(t, &Message{Channel: "guard_alert", Payload: "x"}, msg)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	cancel()
	// The adapter closes its channel once the local subscription is gone.
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestOpen_LocalCompoundOps(t *testing.T) {
	c, _, err := Open(CacheConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.ReplaceHash(ctx, "guard:vault", map[string]string{"warden": "{}"}, time.Minute))
	all, err := c.HGetAll(ctx, "guard:vault")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"warden": "{}"}, all)

	require.NoError(t, c.PushCapped(ctx, "alerts:vault", "a", 1))
	require.NoError(t, c.PushCapped(ctx, "alerts:vault", "b", 1))
	items, err := c.LRange(ctx, "alerts:vault", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, items)
}

func TestOpen_RedisUnreachable(t *testing.T) {
	_, _, err := Open(CacheConfig{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}
