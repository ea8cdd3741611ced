package audit

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/stealthguard/game/world"
	"github.com/kasuganosora/stealthguard/model"
	"github.com/kasuganosora/stealthguard/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func alert(level, guard string, tick uint64) world.Alert {
	return world.Alert{
		Level:   level,
		GuardID: guard,
		From:    "patrol",
		To:      "chase",
		Cause:   "sensor",
		Camera:  true,
		TargetX: 8.5,
		TargetY: 4.5,
		Tick:    tick,
	}
}

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{}, nop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestPublishAlert_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{}, nop())

	svc.PublishAlert(alert("vault", "warden", 42))

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	var events []model.AlertEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, "vault", e.Level)
	assert.Equal(t, "warden", e.GuardID)
	assert.Equal(t, "patrol", e.FromMode)
	assert.Equal(t, "chase", e.ToMode)
	assert.Equal(t, "sensor", e.Cause)
	assert.True(t, e.Camera)
	assert.Equal(t, uint64(42), e.Tick)
	assert.JSONEq(t, `{"x":8.5,"y":4.5}`, string(e.Target))
}

func TestPublishAlert_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{BatchSize: 10, FlushInterval: time.Hour}, nop())

	for i := 0; i < 10; i++ {
		svc.PublishAlert(alert("vault", "warden", uint64(i)))
	}

	// A full batch is written without waiting for the ticker.
	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.AlertEvent{}).Count(&count)
		return count == 10
	}, 2*time.Second, 10*time.Millisecond)
	svc.Stop(context.Background())
}

func TestPublishAlert_TimerFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{FlushInterval: 20 * time.Millisecond}, nop())
	defer svc.Stop(context.Background())

	svc.PublishAlert(alert("vault", "warden", 1))

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.AlertEvent{}).Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{}, nop())
	for i := uint64(1); i <= 5; i++ {
		svc.PublishAlert(alert("vault", "warden", i))
	}
	svc.PublishAlert(alert("annex", "sentry", 9))
	svc.Stop(context.Background())

	got, err := svc.Recent(context.Background(), "vault", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(5), got[0].Tick)
	assert.Equal(t, uint64(3), got[2].Tick)
}

func TestStop_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{}, nop())
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // must not panic
}

func TestPublishAlert_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{QueueSize: 4, BatchSize: 1000, FlushInterval: time.Hour}, nop())

	// Only verifies the full-queue path does not block or panic.
	for i := 0; i < 100; i++ {
		svc.PublishAlert(alert("vault", "warden", uint64(i)))
	}
	svc.Stop(context.Background())
}
