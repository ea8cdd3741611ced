package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/stealthguard/game/world"
	"github.com/kasuganosora/stealthguard/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Options tunes the batch writer.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

func (o *Options) fill() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
}

// Service records guard alerts asynchronously in batches. It implements
// world.AlertSink.
type Service struct {
	db     *gorm.DB
	opts   Options
	ch     chan *model.AlertEvent
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, opts Options, logger *zap.Logger) *Service {
	opts.fill()
	svc := &Service{
		db:     db,
		opts:   opts,
		ch:     make(chan *model.AlertEvent, opts.QueueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// PublishAlert enqueues an alert for async DB write. It never blocks the
// game loop: when the queue is full the alert is dropped.
func (svc *Service) PublishAlert(a world.Alert) {
	target, _ := json.Marshal(map[string]float64{"x": a.TargetX, "y": a.TargetY})
	record := &model.AlertEvent{
		Level:    a.Level,
		GuardID:  a.GuardID,
		FromMode: a.From,
		ToMode:   a.To,
		Cause:    a.Cause,
		Camera:   a.Camera,
		Tick:     a.Tick,
		Target:   datatypes.JSON(target),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping alert",
			zap.String("level", a.Level),
			zap.String("guard_id", a.GuardID))
	}
}

// Recent returns the newest stored alerts of a level, newest first.
func (svc *Service) Recent(ctx context.Context, level string, limit int) ([]model.AlertEvent, error) {
	var out []model.AlertEvent
	err := svc.db.WithContext(ctx).
		Where("level = ?", level).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]*model.AlertEvent, 0, svc.opts.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed",
				zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= svc.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
