package world

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Match event types.
const (
	EventStarted     = "started"
	EventElimination = "elimination"
	EventOver        = "over"
)

// Cache keys and channels shared with the HTTP layer.
const (
	RankingKillsKey       = "ranking:kills"
	RecentEliminationsKey = "eliminations:recent"
	MatchChannel          = "matches"

	recentEliminations = 50
)

// MatchEvent is what an arena reports about its match.
type MatchEvent struct {
	Type       string    `json:"type"`
	ArenaID    string    `json:"arena_id"`
	Definition string    `json:"definition"`
	Player     string    `json:"player"`
	Agent      string    `json:"agent,omitempty"`
	AgentState string    `json:"agent_state,omitempty"`
	Killer     string    `json:"killer,omitempty"`
	Outcome    string    `json:"outcome"`
	Agents     int       `json:"agents"`
	Kills      int       `json:"kills"`
	Remaining  int       `json:"remaining"`
	SimTime    float64   `json:"sim_time"`
	At         time.Time `json:"at"`
}

// Sink receives match events from arena loops. Implementations must not block.
type Sink interface {
	Publish(ev MatchEvent)
}

// Recorder persists match events and fans them out: matches and eliminations
// go to the database, kills to the leaderboard, every event to the pub/sub
// channel. Work happens on a background worker.
type Recorder struct {
	db     *gorm.DB
	cache  cache.Cache
	pubsub cache.PubSub
	logger *zap.Logger

	ch       chan MatchEvent
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	matchIDs map[string]int64 // arena ID → Match row, worker-owned
}

// NewRecorder starts the worker. Any of db, c and ps may be nil to skip that
// destination.
func NewRecorder(db *gorm.DB, c cache.Cache, ps cache.PubSub, logger *zap.Logger) *Recorder {
	r := &Recorder{
		db:       db,
		cache:    c,
		pubsub:   ps,
		logger:   logger,
		ch:       make(chan MatchEvent, 256),
		stopCh:   make(chan struct{}),
		matchIDs: make(map[string]int64),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Publish enqueues ev. A full queue drops it.
func (r *Recorder) Publish(ev MatchEvent) {
	select {
	case r.ch <- ev:
	default:
		r.logger.Warn("match event queue full, dropping event",
			zap.String("arena_id", ev.ArenaID), zap.String("type", ev.Type))
	}
}

// Stop drains queued events and stops the worker.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.ch:
			r.handle(ev)
		case <-r.stopCh:
			for {
				select {
				case ev := <-r.ch:
					r.handle(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) handle(ev MatchEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("match event handler panic",
				zap.String("arena_id", ev.ArenaID), zap.Any("panic", rec))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch ev.Type {
	case EventStarted:
		r.saveMatch(ctx, ev)
	case EventElimination:
		r.saveElimination(ctx, ev)
	case EventOver:
		r.finishMatch(ctx, ev)
	}
	r.broadcast(ctx, ev)
}

func (r *Recorder) saveMatch(ctx context.Context, ev MatchEvent) {
	if r.db == nil {
		return
	}
	m := &model.Match{
		ArenaID:    ev.ArenaID,
		Definition: ev.Definition,
		PlayerName: ev.Player,
		Outcome:    model.OutcomeRunning,
		Agents:     ev.Agents,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("save match failed", zap.String("arena_id", ev.ArenaID), zap.Error(err))
		return
	}
	r.matchIDs[ev.ArenaID] = m.ID
}

func (r *Recorder) saveElimination(ctx context.Context, ev MatchEvent) {
	if r.db != nil {
		e := &model.Elimination{
			MatchID:    r.matchIDs[ev.ArenaID],
			ArenaID:    ev.ArenaID,
			AgentID:    ev.Agent,
			Killer:     ev.Killer,
			AgentState: ev.AgentState,
			SimTimeMs:  int64(ev.SimTime * 1000),
		}
		if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
			r.logger.Error("save elimination failed", zap.String("arena_id", ev.ArenaID), zap.Error(err))
		}
	}
	if r.cache != nil && ev.Killer != "" {
		if _, err := r.cache.ZIncrBy(ctx, RankingKillsKey, 1, ev.Killer); err != nil {
			r.logger.Warn("ranking update failed", zap.Error(err))
		}
		if raw, err := json.Marshal(ev); err == nil {
			_ = r.cache.LPush(ctx, RecentEliminationsKey, string(raw))
			_ = r.cache.LTrim(ctx, RecentEliminationsKey, 0, recentEliminations-1)
		}
	}
}

func (r *Recorder) finishMatch(ctx context.Context, ev MatchEvent) {
	if r.db == nil {
		return
	}
	ended := ev.At
	err := r.db.WithContext(ctx).Model(&model.Match{}).
		Where("arena_id = ?", ev.ArenaID).
		Updates(map[string]interface{}{
			"outcome":  ev.Outcome,
			"kills":    ev.Kills,
			"ended_at": &ended,
		}).Error
	if err != nil {
		r.logger.Error("finish match failed", zap.String("arena_id", ev.ArenaID), zap.Error(err))
	}
	delete(r.matchIDs, ev.ArenaID)
}

func (r *Recorder) broadcast(ctx context.Context, ev MatchEvent) {
	if r.pubsub == nil {
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := r.pubsub.Publish(ctx, MatchChannel, string(raw)); err != nil {
		r.logger.Warn("match event publish failed", zap.Error(err))
	}
}
