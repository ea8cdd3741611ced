package world

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kasuganosora/stealthguard/cache"
	"go.uber.org/zap"
)

// AlertChannel is the pub/sub channel guard alerts are published on.
const AlertChannel = "guard_alert"

// Alert is a guard state change, as published to observers.
type Alert struct {
	Level   string    `json:"level"`
	GuardID string    `json:"guard_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Cause   string    `json:"cause"`
	Camera  bool      `json:"camera"`
	TargetX float64   `json:"target_x"`
	TargetY float64   `json:"target_y"`
	Tick    uint64    `json:"tick"`
	At      time.Time `json:"at"`
}

// AlertSink receives alerts after each level tick.
type AlertSink interface {
	PublishAlert(a Alert)
}

// AlertSinkFunc adapts a function to AlertSink.
type AlertSinkFunc func(Alert)

func (f AlertSinkFunc) PublishAlert(a Alert) { f(a) }

// MultiSink fans an alert out to every sink in order.
type MultiSink []AlertSink

func (m MultiSink) PublishAlert(a Alert) {
	for _, s := range m {
		if s != nil {
			s.PublishAlert(a)
		}
	}
}

// PubSubSink publishes alerts as JSON on AlertChannel.
type PubSubSink struct {
	ps      cache.PubSub
	timeout time.Duration
	logger  *zap.Logger
}

// NewPubSubSink creates a sink on ps.
func NewPubSubSink(ps cache.PubSub, logger *zap.Logger) *PubSubSink {
	return &PubSubSink{ps: ps, timeout: time.Second, logger: logger}
}

func (s *PubSubSink) PublishAlert(a Alert) {
	data, err := json.Marshal(a)
	if err != nil {
		s.logger.Error("marshal alert", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.ps.Publish(ctx, AlertChannel, string(data)); err != nil {
		s.logger.Warn("publish alert failed",
			zap.String("level", a.Level),
			zap.String("guard_id", a.GuardID),
			zap.Error(err))
	}
}

// ParseAlert decodes an alert received from AlertChannel.
func ParseAlert(payload string) (Alert, error) {
	var a Alert
	err := json.Unmarshal([]byte(payload), &a)
	return a, err
}

// RecentAlertsKey is the cache list holding the latest alerts of a level.
func RecentAlertsKey(level string) string { return "alerts:" + level }

// RecentAlertsSink keeps the newest alerts of each level in a capped cache list.
type RecentAlertsSink struct {
	c       cache.Cache
	limit   int64
	timeout time.Duration
	logger  *zap.Logger
}

func NewRecentAlertsSink(c cache.Cache, limit int, logger *zap.Logger) *RecentAlertsSink {
	if limit <= 0 {
		limit = 100
	}
	return &RecentAlertsSink{c: c, limit: int64(limit), timeout: time.Second, logger: logger}
}

func (s *RecentAlertsSink) PublishAlert(a Alert) {
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.c.PushCapped(ctx, RecentAlertsKey(a.Level), string(data), s.limit); err != nil {
		s.logger.Warn("record recent alert failed", zap.String("level", a.Level), zap.Error(err))
	}
}

// RecentAlerts returns up to n of the newest alerts of a level, newest first.
func RecentAlerts(ctx context.Context, c cache.Cache, level string, n int) ([]Alert, error) {
	raw, err := c.LRange(ctx, RecentAlertsKey(level), 0, int64(n)-1)
	if err != nil {
		return nil, err
	}
	out := make([]Alert, 0, len(raw))
	for _, r := range raw {
		a, err := ParseAlert(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
