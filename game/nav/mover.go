// Package nav is the straight-line mover that agents steer through.
// It has no path planning: a destination is approached at constant speed.
package nav

import (
	"sync"

	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// DefaultSpeed is the movement speed in units per second.
const DefaultSpeed = 3.5

// Mover is a kinematic agent body.
// A new destination reports PathPending until the next Step, mimicking a
// one-step path computation.
type Mover struct {
	mu      sync.Mutex
	pos     geom.Vec3
	dest    geom.Vec3
	hasDest bool
	pending bool
	stopped bool
	speed   float64

	scene *physics.Scene
	body  physics.BodyID
}

// NewMover creates a mover at pos. A non-positive speed uses DefaultSpeed.
func NewMover(pos geom.Vec3, speed float64) *Mover {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &Mover{pos: pos, speed: speed}
}

// Bind makes Step drag the given scene body along with the mover.
func (m *Mover) Bind(scene *physics.Scene, body physics.BodyID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scene = scene
	m.body = body
	if scene != nil {
		scene.MoveTo(body, m.pos)
	}
}

// Body returns the bound scene body, zero when unbound.
func (m *Mover) Body() physics.BodyID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.body
}

func (m *Mover) SetDestination(p geom.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dest = p
	m.hasDest = true
	m.pending = true
}

func (m *Mover) PathPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// RemainingDistance is zero when there is no destination.
func (m *Mover) RemainingDistance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasDest {
		return 0
	}
	return geom.Distance(m.pos, m.dest)
}

// Stop freezes the mover without dropping its destination.
func (m *Mover) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Resume lifts a Stop.
func (m *Mover) Resume() {
	m.mu.Lock()
	m.stopped = false
	m.mu.Unlock()
}

func (m *Mover) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Mover) Position() geom.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Destination returns the current goal, if any.
func (m *Mover) Destination() (geom.Vec3, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dest, m.hasDest
}

// Step advances the mover by dt seconds.
func (m *Mover) Step(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending {
		m.pending = false
		return
	}
	if m.stopped || !m.hasDest || dt <= 0 {
		return
	}
	delta := m.dest.Sub(m.pos)
	dist := delta.Len()
	stride := m.speed * dt
	if dist <= stride {
		m.pos = m.dest
	} else {
		m.pos = m.pos.Add(delta.Mul(stride / dist))
	}
	m.sync()
}

func (m *Mover) sync() {
	if m.scene != nil {
		m.scene.MoveTo(m.body, m.pos)
	}
}
