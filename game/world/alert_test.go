package world

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/cache/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAlert(guard string, tick uint64) Alert {
	return Alert{
		Level:   "corridor",
		GuardID: guard,
		From:    "patrol",
		To:      "chase",
		Cause:   "fov",
		TargetX: 4,
		TargetY: 1.5,
		Tick:    tick,
	}
}

func TestPubSubSink(t *testing.T) {
	_, ps, err := cache.Open(cache.CacheConfig{})
	require.NoError(t, err)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, AlertChannel)
	require.NoError(t, err)
	defer cancel()

	NewPubSubSink(ps, nop()).PublishAlert(sampleAlert("g1", 7))

	select {
	case msg := <-ch:
		assert.Equal(t, AlertChannel, msg.Channel)
		a, err := ParseAlert(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, "g1", a.GuardID)
		assert.Equal(t, uint64(7), a.Tick)
		assert.Equal(t, "fov", a.Cause)
	case <-time.After(time.Second):
		t.Fatal("alert was not published")
	}
}

func TestRecentAlertsSink(t *testing.T) {
	c, err := local.NewCache(local.Config{})
	require.NoError(t, err)
	defer c.Close()

	sink := NewRecentAlertsSink(c, 3, nop())
	for i := uint64(1); i <= 5; i++ {
		sink.PublishAlert(sampleAlert("g1", i))
	}

	got, err := RecentAlerts(context.Background(), c, "corridor", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(5), got[0].Tick, "newest first")
	assert.Equal(t, uint64(3), got[2].Tick)
}

func TestMultiSink(t *testing.T) {
	var a, b []Alert
	sink := MultiSink{
		AlertSinkFunc(func(x Alert) { a = append(a, x) }),
		nil,
		AlertSinkFunc(func(x Alert) { b = append(b, x) }),
	}
	sink.PublishAlert(sampleAlert("g1", 1))
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

// stallingCache blocks every push until the caller's context ends.
type stallingCache struct {
	cache.Cache
	hadDeadline bool
}

func (c *stallingCache) PushCapped(ctx context.Context, _, _ string, _ int64) error {
	_, c.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestRecentAlertsSink_BoundedBySlowCache(t *testing.T) {
	c := &stallingCache{}
	sink := NewRecentAlertsSink(c, 3, nop())
	sink.timeout = 20 * time.Millisecond

	start := time.Now()
	sink.PublishAlert(sampleAlert("g1", 1))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, c.hadDeadline)
}
