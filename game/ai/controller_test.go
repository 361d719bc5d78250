package ai

import (
	"math"
	"testing"
	"time"

	"github.com/kasuganosora/sentrysim/game/alert"
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 16 * time.Millisecond

// ---- Construction ----

func TestNewController_StartsInPatrol(t *testing.T) {
	r := newRig(t, testConfig())
	assert.Equal(t, StatePatrol, r.c.State())
	assert.True(t, r.c.Alive())
	assert.True(t, r.c.Snapshot().Listening)
	assert.Equal(t, 1, r.bus.Len())
}

func TestNewController_MissingDependencies(t *testing.T) {
	full := Deps{
		Nav:        &fakeNav{},
		Perception: &fakePerception{},
		Aim:        &fakeAim{},
		Target:     &fakeTarget{},
		Cue:        &fakeCue{},
		Score:      &fakeScore{},
		Bus:        alert.NewBus(),
	}
	cases := map[string]func(d *Deps){
		"nav":        func(d *Deps) { d.Nav = nil },
		"perception": func(d *Deps) { d.Perception = nil },
		"aim":        func(d *Deps) { d.Aim = nil },
		"target":     func(d *Deps) { d.Target = nil },
		"cue":        func(d *Deps) { d.Cue = nil },
		"score":      func(d *Deps) { d.Score = nil },
		"bus":        func(d *Deps) { d.Bus = nil },
	}
	for name, drop := range cases {
		t.Run(name, func(t *testing.T) {
			d := full
			drop(&d)
			_, err := NewController("a", testConfig(), d)
			assert.ErrorIs(t, err, ErrMissingDependency)
		})
	}

	_, err := NewController("", testConfig(), full)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestNewController_InvalidConfig(t *testing.T) {
	d := Deps{
		Nav: &fakeNav{}, Perception: &fakePerception{}, Aim: &fakeAim{},
		Target: &fakeTarget{}, Cue: &fakeCue{}, Score: &fakeScore{}, Bus: alert.NewBus(),
	}
	for name, mutate := range map[string]func(c *Config){
		"zero range":        func(c *Config) { c.AttackRange = 0 },
		"negative search":   func(c *Config) { c.SearchDuration = -time.Second },
		"negative interval": func(c *Config) { c.FireInterval = -time.Millisecond },
		"zero tolerance":    func(c *Config) { c.WaypointTolerance = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			_, err := NewController("a", cfg, d)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

// ---- Alert ----

func TestAlert_PatrolEntersSearchWithFullTimer(t *testing.T) {
	r := newRig(t, testConfig())
	r.bus.Raise()
	r.step(frame)

	assert.Equal(t, StateSearch, r.c.State())
	assert.Equal(t, 5*time.Second, r.c.SearchTimer())
}

func TestAlert_IgnoredOutsidePatrol(t *testing.T) {
	r := newRig(t, testConfig())
	r.bus.Raise()
	r.step(frame)
	require.Equal(t, StateSearch, r.c.State())

	r.step(time.Second)
	before := r.c.SearchTimer()
	r.bus.Raise()
	r.step(frame)
	assert.Equal(t, StateSearch, r.c.State())
	assert.Equal(t, before-frame, r.c.SearchTimer(), "raise in Search must not reset the timer")

	r.sight.visible = true
	r.step(frame)
	require.Equal(t, StateAttack, r.c.State())
	r.bus.Raise()
	r.step(frame)
	assert.Equal(t, StateAttack, r.c.State())
}

func TestAlert_NotDeliveredAfterDeactivate(t *testing.T) {
	r := newRig(t, testConfig())
	r.c.Deactivate()
	r.c.Deactivate()
	assert.Equal(t, 0, r.bus.Len())

	r.bus.Raise()
	r.step(frame)
	assert.Equal(t, StatePatrol, r.c.State())

	r.c.Activate()
	r.c.Activate()
	assert.Equal(t, 1, r.bus.Len())
}

func TestAlert_RaisedInAttackDoesNotLeakIntoLaterPatrol(t *testing.T) {
	r := newRig(t, testConfig())
	r.sight.visible = true
	r.step(frame)
	require.Equal(t, StateAttack, r.c.State())
	r.bus.Raise()

	// lose track, time out the search, and come back to Patrol
	r.sight.visible = false
	r.step(frame)
	require.Equal(t, StateSearch, r.c.State())
	r.step(10 * time.Second)
	require.Equal(t, StatePatrol, r.c.State())
	r.step(frame)
	assert.Equal(t, StatePatrol, r.c.State())
}

// ---- Patrol ----

func TestPatrol_SightInRangeEntersAttack(t *testing.T) {
	r := newRig(t, testConfig())
	r.target.pos = geom.V(0, 0, 3)
	r.sight.visible = true
	r.step(frame)
	assert.Equal(t, StateAttack, r.c.State())
	assert.Equal(t, 0, r.cue.shots, "the transition tick does not fire")
}

func TestPatrol_OutOfRangeDoesNotQueryPerception(t *testing.T) {
	r := newRig(t, testConfig())
	r.target.pos = geom.V(0, 0, 5.01)
	r.sight.visible = true
	r.step(frame)
	assert.Equal(t, StatePatrol, r.c.State())
	assert.Equal(t, 0, r.sight.queries)

	r.target.pos = geom.V(0, 0, 5)
	r.step(frame)
	assert.Equal(t, StateAttack, r.c.State(), "range is inclusive")
}

func TestPatrol_NoSightStaysPatrol(t *testing.T) {
	r := newRig(t, testConfig())
	r.sight.visible = false
	r.step(frame)
	assert.Equal(t, StatePatrol, r.c.State())
}

func TestPatrol_WaypointsCycle(t *testing.T) {
	cfg := testConfig()
	a, b, c := geom.V(10, 0, 0), geom.V(10, 0, 10), geom.V(0, 0, 10)
	cfg.Route = []geom.Vec3{a, b, c}
	r := newRig(t, cfg)
	r.target.pos = geom.V(100, 0, 100)

	r.step(frame)
	r.step(frame)
	r.step(frame)
	r.step(frame)
	assert.Equal(t, []geom.Vec3{b, c, a, b}, r.nav.dests)
	assert.Equal(t, 1, r.c.WaypointIndex())
}

func TestPatrol_WaitsForArrival(t *testing.T) {
	cfg := testConfig()
	cfg.Route = []geom.Vec3{geom.V(1, 0, 0), geom.V(2, 0, 0)}
	r := newRig(t, cfg)
	r.target.pos = geom.V(100, 0, 100)

	r.nav.pending = true
	r.step(frame)
	assert.Empty(t, r.nav.dests)

	r.nav.pending = false
	r.nav.remaining = 0.5
	r.step(frame)
	assert.Empty(t, r.nav.dests, "0.5 is not below the tolerance")

	r.nav.remaining = 0.49
	r.step(frame)
	assert.Len(t, r.nav.dests, 1)
}

func TestPatrol_EmptyRouteLoiters(t *testing.T) {
	r := newRig(t, testConfig())
	r.target.pos = geom.V(100, 0, 100)
	for i := 0; i < 10; i++ {
		r.step(frame)
	}
	assert.Equal(t, StatePatrol, r.c.State())
	assert.Empty(t, r.nav.dests)
	assert.False(t, r.nav.stopped)
}

// ---- Search ----

func TestSearch_StopsMovement(t *testing.T) {
	r := newRig(t, testConfig())
	r.bus.Raise()
	r.step(frame)
	r.step(frame)
	assert.True(t, r.nav.stopped)

	r.step(10 * time.Second)
	require.Equal(t, StatePatrol, r.c.State())
	r.step(frame)
	assert.False(t, r.nav.stopped, "patrol resumes the mover")
}

func TestSearch_TimesOutToPatrol(t *testing.T) {
	r := newRig(t, testConfig())
	r.bus.Raise()
	r.step(frame)
	require.Equal(t, StateSearch, r.c.State())

	for i := 0; i < 49; i++ {
		r.step(100 * time.Millisecond)
		require.Equal(t, StateSearch, r.c.State(), "tick %d", i)
	}
	r.step(100 * time.Millisecond)
	assert.Equal(t, StatePatrol, r.c.State())
	assert.LessOrEqual(t, r.c.SearchTimer(), time.Duration(0))
}

func TestSearch_TimeoutBeatsSight(t *testing.T) {
	r := newRig(t, testConfig())
	r.bus.Raise()
	r.step(frame)
	require.Equal(t, StateSearch, r.c.State())

	r.sight.visible = true
	r.step(5 * time.Second)
	assert.Equal(t, StatePatrol, r.c.State())
}

func TestSearch_SightEntersAttack(t *testing.T) {
	r := newRig(t, testConfig())
	r.bus.Raise()
	r.step(frame)
	r.sight.visible = true
	r.step(frame)
	assert.Equal(t, StateAttack, r.c.State())
}

func TestSearch_LooksAroundTowardTarget(t *testing.T) {
	cfg := testConfig()
	cfg.LookAroundAngle = 45
	cfg.LookAroundSpeed = math.Pi / 2
	cfg.SearchTurnRate = 1000
	r := newRig(t, cfg)
	r.target.pos = geom.V(0, 0, 20)

	r.bus.Raise()
	r.at(10 * time.Millisecond)
	require.Equal(t, StateSearch, r.c.State())

	// sin(1s * pi/2) = 1, so the sweep sits at its full amplitude
	r.at(time.Second)
	assert.InDelta(t, 45, geom.Heading(r.c.Orientation()), 1e-6)
}

// ---- Attack ----

func enterAttack(t *testing.T, r *rig) {
	t.Helper()
	r.sight.visible = true
	r.aim.onTarget = true
	r.at(500 * time.Millisecond)
	require.Equal(t, StateAttack, r.c.State())
}

func TestAttack_FireIntervalGatesShots(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)

	r.at(1000 * time.Millisecond)
	r.at(1050 * time.Millisecond)
	assert.Equal(t, 1, r.cue.shots, "second request inside the interval is suppressed")
	assert.Equal(t, 1, r.target.hits)

	r.at(1200 * time.Millisecond)
	assert.Equal(t, 2, r.cue.shots)
	assert.Equal(t, 1400*time.Millisecond, r.c.FireCooldown())
}

func TestAttack_CueAlwaysDamageOnlyOnAim(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)

	r.aim.onTarget = false
	r.at(1 * time.Second)
	assert.Equal(t, 1, r.cue.shots)
	assert.Equal(t, 0, r.target.hits)
	require.Len(t, r.fires, 1)
	assert.False(t, r.fires[0].Hit)

	r.aim.onTarget = true
	r.at(2 * time.Second)
	assert.Equal(t, 2, r.cue.shots)
	assert.Equal(t, 1, r.target.hits)
	assert.Equal(t, 10.0, r.target.damage)
	require.Len(t, r.fires, 2)
	assert.True(t, r.fires[1].Hit)
	assert.Equal(t, r.target.pos, r.fires[1].Point)
}

func TestAttack_LossOfTrackStillFiresThatTick(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)

	r.sight.visible = false
	r.at(1 * time.Second)
	assert.Equal(t, StateSearch, r.c.State())
	assert.Equal(t, 5*time.Second, r.c.SearchTimer())
	assert.Equal(t, 1, r.cue.shots)
	assert.Equal(t, 1, r.target.hits)
}

func TestAttack_OutOfRangeRevertsToSearch(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)
	r.target.pos = geom.V(0, 0, 6)
	r.at(1 * time.Second)
	assert.Equal(t, StateSearch, r.c.State())
}

func TestAttack_CooldownSurvivesStateFlapping(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)

	r.at(1000 * time.Millisecond) // fires, cooldown 1.2s
	r.sight.visible = false
	r.at(1050 * time.Millisecond) // -> Search
	require.Equal(t, StateSearch, r.c.State())
	r.sight.visible = true
	r.at(1100 * time.Millisecond) // -> Attack
	require.Equal(t, StateAttack, r.c.State())
	r.at(1150 * time.Millisecond)
	assert.Equal(t, 1, r.cue.shots)
	r.at(1200 * time.Millisecond)
	assert.Equal(t, 2, r.cue.shots)
}

func TestAttack_HoldsPositionEveryTick(t *testing.T) {
	r := newRig(t, testConfig())
	r.nav.pos = geom.V(1, 0, 1)
	r.target.pos = geom.V(1, 0, 3)
	enterAttack(t, r)

	r.at(600 * time.Millisecond)
	r.at(700 * time.Millisecond)
	require.Len(t, r.nav.dests, 2)
	for _, d := range r.nav.dests {
		assert.Equal(t, geom.V(1, 0, 1), d)
	}
}

func TestAttack_FacesTargetOnHorizontalPlaneOnly(t *testing.T) {
	cfg := testConfig()
	cfg.AttackRange = 10
	r := newRig(t, cfg)
	r.target.pos = geom.V(3, 4, 0)
	enterAttack(t, r)

	r.at(2 * time.Second) // damping 5 * 1.5s clamps to a full turn
	fwd := geom.ForwardOf(r.c.Orientation())
	assert.InDelta(t, 0, fwd[1], 1e-9, "no pitch toward a raised target")
	assert.InDelta(t, 90, geom.Heading(r.c.Orientation()), 1e-6)
}

func TestAttack_AlertOnFire(t *testing.T) {
	cfg := testConfig()
	cfg.AlertOnFire = true
	r := newRig(t, cfg)
	var raised int
	r.bus.Subscribe(func() { raised++ })
	enterAttack(t, r)
	r.at(1 * time.Second)
	assert.Equal(t, 1, raised)
}

func TestAttack_DeadTargetIsLost(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)
	r.target.dead = true
	r.at(1 * time.Second)
	assert.Equal(t, StateSearch, r.c.State())
}

// ---- Death ----

func TestDeath_StopsEverythingAndNotifiesOnce(t *testing.T) {
	r := newRig(t, testConfig())
	enterAttack(t, r)
	r.at(1 * time.Second)
	shots := r.cue.shots

	r.c.TakeDamage(100, geom.V(0, 0, 0))
	r.c.TakeDamage(100, geom.V(0, 0, 0))
	assert.False(t, r.c.Alive())
	assert.Equal(t, []AgentID{"agent-1"}, r.score.eliminated)
	assert.Equal(t, 0, r.bus.Len())

	calls := r.nav.calls
	orient := r.c.Orientation()
	for i := 2; i < 10; i++ {
		r.at(time.Duration(i) * time.Second)
	}
	assert.Equal(t, calls, r.nav.calls, "no navigation after death")
	assert.Equal(t, shots, r.cue.shots, "no fire after death")
	assert.Equal(t, StateAttack, r.c.State(), "no transitions after death")
	assert.Equal(t, orient, r.c.Orientation())

	r.c.SetOrientation(geom.Yaw(90))
	assert.Equal(t, orient, r.c.Orientation())
	r.c.Activate()
	assert.Equal(t, 0, r.bus.Len(), "dead agents never resubscribe")
}

func TestDeath_InPatrolIgnoresAlert(t *testing.T) {
	r := newRig(t, testConfig())
	r.c.TakeDamage(1, geom.Vec3{})
	r.bus.Raise()
	r.step(frame)
	assert.Equal(t, StatePatrol, r.c.State())
}

func TestSnapshot(t *testing.T) {
	r := newRig(t, testConfig())
	r.nav.pos = geom.V(1, 2, 3)
	s := r.c.Snapshot()
	assert.Equal(t, AgentID("agent-1"), s.ID)
	assert.Equal(t, "patrol", s.State)
	assert.True(t, s.Alive)
	assert.Equal(t, geom.V(1, 2, 3), s.Position)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "patrol", StatePatrol.String())
	assert.Equal(t, "search", StateSearch.String())
	assert.Equal(t, "attack", StateAttack.String())
	assert.Equal(t, "unknown", State(42).String())
}
