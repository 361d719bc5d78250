// Package audit persists the combat log: every shot, alert, state change and
// elimination of every arena, written asynchronously in batches.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/sentrysim/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry holds one combat event to be logged.
type Entry struct {
	TraceID string
	ArenaID string
	Kind    string
	Actor   string
	Payload interface{}
	SimTime time.Duration
}

// Options tunes the writer. Zero values pick the defaults.
type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	return o
}

// Service logs combat entries asynchronously in batches.
type Service struct {
	db       *gorm.DB
	opts     Options
	ch       chan *model.CombatLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger

	mu      sync.Mutex
	dropped int
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, opts Options, logger *zap.Logger) *Service {
	opts = opts.withDefaults()
	svc := &Service{
		db:     db,
		opts:   opts,
		ch:     make(chan *model.CombatLog, opts.BufferSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an entry for async DB write. It never blocks the caller; a full
// buffer drops the entry.
func (svc *Service) Log(entry Entry) {
	var payload datatypes.JSON
	if entry.Payload != nil {
		raw, err := json.Marshal(entry.Payload)
		if err != nil {
			svc.logger.Warn("combat log payload not encodable",
				zap.String("kind", entry.Kind), zap.Error(err))
		} else {
			payload = datatypes.JSON(raw)
		}
	}
	record := &model.CombatLog{
		TraceID:   entry.TraceID,
		ArenaID:   entry.ArenaID,
		Kind:      entry.Kind,
		Actor:     entry.Actor,
		Payload:   payload,
		SimTimeMs: entry.SimTime.Milliseconds(),
	}
	select {
	case svc.ch <- record:
	default:
		svc.mu.Lock()
		svc.dropped++
		svc.mu.Unlock()
		svc.logger.Warn("combat log channel full, dropping entry",
			zap.String("arena_id", entry.ArenaID),
			zap.String("kind", entry.Kind))
	}
}

// Dropped returns how many entries were lost to a full buffer.
func (svc *Service) Dropped() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.dropped
}

// Recent returns the newest entries of an arena, newest first.
func (svc *Service) Recent(ctx context.Context, arenaID string, limit int) ([]model.CombatLog, error) {
	var logs []model.CombatLog
	err := svc.db.WithContext(ctx).
		Where("arena_id = ?", arenaID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]*model.CombatLog, 0, svc.opts.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("combat log batch write failed",
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
