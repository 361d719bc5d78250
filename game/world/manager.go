package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/sentrysim/config"
	"github.com/kasuganosora/sentrysim/resource"
	"go.uber.org/zap"
)

var (
	ErrUnknownDefinition = errors.New("unknown arena definition")
	ErrTooManyArenas     = errors.New("too many running arenas")
)

// Manager owns every running Arena.
type Manager struct {
	mu     sync.RWMutex
	arenas map[string]*Arena
	res    *resource.Loader
	cfg    *config.Config
	deps   Deps
	logger *zap.Logger
}

// NewManager creates a Manager that builds arenas from the definitions in res.
func NewManager(res *resource.Loader, cfg *config.Config, deps Deps) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
		deps.Logger = logger
	}
	return &Manager{
		arenas: make(map[string]*Arena),
		res:    res,
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Create builds and starts an arena from the named definition.
func (m *Manager) Create(definition, player string) (*Arena, error) {
	def, ok := m.res.Arena(definition)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, definition)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if limit := m.cfg.Sim.MaxArenas; limit > 0 && len(m.arenas) >= limit {
		return nil, ErrTooManyArenas
	}
	a, err := NewArena(def, player, m.cfg, m.deps)
	if err != nil {
		return nil, err
	}
	m.arenas[a.ID()] = a
	a.Start()
	m.logger.Info("arena created",
		zap.String("arena_id", a.ID()),
		zap.String("definition", definition),
		zap.String("player", player))
	return a, nil
}

// Get returns the arena with id, or nil if it does not exist.
func (m *Manager) Get(id string) *Arena {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.arenas[id]
}

// List returns the latest snapshot of every arena, oldest first.
func (m *Manager) List() []*Snapshot {
	m.mu.RLock()
	out := make([]*Snapshot, 0, len(m.arenas))
	for _, a := range m.arenas {
		out = append(out, a.Snapshot())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Destroy stops and removes the arena. It reports whether it existed.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	a, ok := m.arenas[id]
	if ok {
		delete(m.arenas, id)
	}
	m.mu.Unlock()
	if ok {
		a.Stop()
		m.logger.Info("arena destroyed", zap.String("arena_id", id))
	}
	return ok
}

// Reap destroys arenas whose match ended more than grace ago and returns how
// many it removed.
func (m *Manager) Reap(grace time.Duration) int {
	cutoff := time.Now().Add(-grace)
	m.mu.Lock()
	var done []*Arena
	for id, a := range m.arenas {
		if s := a.Snapshot(); s.EndedAt != nil && s.EndedAt.Before(cutoff) {
			done = append(done, a)
			delete(m.arenas, id)
		}
	}
	m.mu.Unlock()
	for _, a := range done {
		a.Stop()
		m.logger.Info("arena reaped", zap.String("arena_id", a.ID()))
	}
	return len(done)
}

// Count returns the number of arenas.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.arenas)
}

// StopAll stops every arena (used at server shutdown).
func (m *Manager) StopAll() {
	m.mu.Lock()
	arenas := make([]*Arena, 0, len(m.arenas))
	for _, a := range m.arenas {
		arenas = append(arenas, a)
	}
	m.arenas = make(map[string]*Arena)
	m.mu.Unlock()
	for _, a := range arenas {
		a.Stop()
	}
}
