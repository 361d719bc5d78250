package ai

import (
	"testing"
	"time"

	"github.com/kasuganosora/sentrysim/game/alert"
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- Test doubles ----

type fakeNav struct {
	pos       geom.Vec3
	pending   bool
	remaining float64
	stopped   bool
	dests     []geom.Vec3
	calls     int
}

func (n *fakeNav) SetDestination(p geom.Vec3) { n.calls++; n.dests = append(n.dests, p) }
func (n *fakeNav) PathPending() bool          { n.calls++; return n.pending }
func (n *fakeNav) RemainingDistance() float64 { n.calls++; return n.remaining }
func (n *fakeNav) Stop()                      { n.calls++; n.stopped = true }
func (n *fakeNav) Resume()                    { n.calls++; n.stopped = false }
func (n *fakeNav) Position() geom.Vec3        { return n.pos }

type fakeTarget struct {
	pos    geom.Vec3
	dead   bool
	hits   int
	damage float64
}

func (t *fakeTarget) Position() geom.Vec3 { return t.pos }
func (t *fakeTarget) Alive() bool         { return !t.dead }
func (t *fakeTarget) TakeDamage(amount float64, _ geom.Vec3) {
	t.hits++
	t.damage += amount
}

type fakeCue struct{ shots int }

func (c *fakeCue) PlayShot(AgentID) { c.shots++ }

type fakeScore struct{ eliminated []AgentID }

func (s *fakeScore) NotifyEliminated(id AgentID) { s.eliminated = append(s.eliminated, id) }

type fakePerception struct {
	visible bool
	queries int
}

func (p *fakePerception) CanSee(_, _ geom.Vec3, _ float64, _ physics.Mask) bool {
	p.queries++
	return p.visible
}

type fakeAim struct{ onTarget bool }

func (a *fakeAim) PointingAtTarget() bool { return a.onTarget }

// rig bundles a controller with its doubles.
type rig struct {
	c      *Controller
	nav    *fakeNav
	target *fakeTarget
	cue    *fakeCue
	score  *fakeScore
	sight  *fakePerception
	aim    *fakeAim
	bus    *alert.Bus
	fires  []FireResult
	now    time.Duration
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AttackRange = 5
	cfg.SearchDuration = 5 * time.Second
	cfg.FireInterval = 200 * time.Millisecond
	return cfg
}

func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	r := &rig{
		nav:    &fakeNav{},
		target: &fakeTarget{pos: geom.V(0, 0, 3)},
		cue:    &fakeCue{},
		score:  &fakeScore{},
		sight:  &fakePerception{},
		aim:    &fakeAim{},
		bus:    alert.NewBus(),
	}
	c, err := NewController("agent-1", cfg, Deps{
		Nav:        r.nav,
		Perception: r.sight,
		Aim:        r.aim,
		Target:     r.target,
		Cue:        r.cue,
		Score:      r.score,
		Bus:        r.bus,
		Logger:     zap.NewNop(),
		OnFire:     func(fr FireResult) { r.fires = append(r.fires, fr) },
	})
	require.NoError(t, err)
	c.Activate()
	r.c = c
	return r
}

// step ticks once, advancing the clock by dt first.
func (r *rig) step(dt time.Duration) {
	r.now += dt
	r.c.Tick(Frame{Now: r.now, Delta: dt})
}

// at ticks at an absolute time.
func (r *rig) at(now time.Duration) {
	dt := now - r.now
	r.now = now
	r.c.Tick(Frame{Now: now, Delta: dt})
}
