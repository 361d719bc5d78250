// Package hook lets extensions observe and veto combat events.
package hook

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrInterrupt stops the chain; the caller treats the event as cancelled.
var ErrInterrupt = errors.New("hook interrupted")

// Fn handles one event. It returns the (possibly replaced) payload.
// Errors other than ErrInterrupt are logged and the chain continues.
type Fn func(ctx context.Context, event string, data any) (any, error)

type entry struct {
	priority int
	seq      int
	name     string
	fn       Fn
}

// Center is the registry of event hooks.
type Center struct {
	mu     sync.RWMutex
	hooks  map[string][]*entry
	seq    int
	logger *zap.Logger
}

// NewCenter creates an empty Center. A nil logger discards handler errors.
func NewCenter(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{hooks: make(map[string][]*entry), logger: logger}
}

// Register adds fn for event. Lower priority runs first; equal priorities keep
// registration order.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	list := append(c.hooks[event], &entry{priority: priority, seq: c.seq, name: name, fn: fn})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	c.hooks[event] = list
}

// Unregister removes every hook called name from event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[event] = without(c.hooks[event], name)
}

// UnregisterAll removes every hook called name from all events.
func (c *Center) UnregisterAll(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ev, list := range c.hooks {
		c.hooks[ev] = without(list, name)
	}
}

func without(list []*entry, name string) []*entry {
	out := list[:0]
	for _, e := range list {
		if e.name != name {
			out = append(out, e)
		}
	}
	return out
}

// Names lists the hooks registered for event in execution order.
func (c *Center) Names(event string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.hooks[event]))
	for _, e := range c.hooks[event] {
		names = append(names, e.name)
	}
	return names
}

// Trigger runs the hooks for event in order, threading data through them.
// It returns ErrInterrupt if a handler cancelled the event.
func (c *Center) Trigger(ctx context.Context, event string, data any) (any, error) {
	c.mu.RLock()
	list := make([]*entry, len(c.hooks[event]))
	copy(list, c.hooks[event])
	c.mu.RUnlock()

	for _, e := range list {
		out, err := e.fn(ctx, event, data)
		if errors.Is(err, ErrInterrupt) {
			return out, err
		}
		if err != nil {
			c.logger.Warn("hook failed",
				zap.String("event", event),
				zap.String("hook", e.name),
				zap.Error(err))
			continue
		}
		data = out
	}
	return data, nil
}

// ---- Combat event names ----

const (
	// BeforeDamage carries a *DamageEvent; handlers may change Amount or
	// interrupt to cancel the hit.
	BeforeDamage = "before_damage"
	// AfterShot carries a *ShotEvent for every fire attempt, hit or miss.
	AfterShot = "after_shot"
	// AfterAgentEliminated carries an *EliminationEvent.
	AfterAgentEliminated = "after_agent_eliminated"
	// OnAlert carries an *AlertEvent.
	OnAlert = "on_alert"
	// OnMatchOver carries a *MatchEvent.
	OnMatchOver = "on_match_over"
)

// DamageEvent is a pending hit on a combatant.
type DamageEvent struct {
	Arena    string
	Attacker string
	Victim   string
	Amount   float64
}

// ShotEvent is one fire attempt.
type ShotEvent struct {
	Arena   string
	Shooter string
	Hit     bool
	Damage  float64
}

// EliminationEvent reports an agent that died.
type EliminationEvent struct {
	Arena  string
	Agent  string
	Killer string
}

// AlertEvent reports a raised alert.
type AlertEvent struct {
	Arena  string
	Source string
}

// MatchEvent reports the end of a match.
type MatchEvent struct {
	Arena   string
	Outcome string
	Kills   int
}
