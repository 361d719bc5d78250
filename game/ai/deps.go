package ai

import (
	"time"

	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// AgentID is the opaque handle of one agent, unique for its lifetime.
type AgentID string

// Frame is the timing of one simulation tick.
type Frame struct {
	Now   time.Duration // simulation time since arena start
	Delta time.Duration // time since the previous tick
}

// Navigator is the black-box mover that owns the agent's position.
type Navigator interface {
	SetDestination(p geom.Vec3)
	PathPending() bool
	RemainingDistance() float64
	Stop()
	Resume()
	Position() geom.Vec3
}

// Damageable receives damage.
type Damageable interface {
	TakeDamage(amount float64, hitPoint geom.Vec3)
}

// Target is the tracked point an agent hunts. Agents only read its position.
type Target interface {
	Damageable
	Position() geom.Vec3
	Alive() bool
}

// EffectCue plays the fixed-duration shot cue. Fire-and-forget.
type EffectCue interface {
	PlayShot(id AgentID)
}

// Scorekeeper is told once per agent about its elimination.
type Scorekeeper interface {
	NotifyEliminated(id AgentID)
}

// Perception answers whether an unobstructed line exists to the target.
type Perception interface {
	CanSee(origin, dir geom.Vec3, maxDist float64, ignore physics.Mask) bool
}

// AimResolver answers whether the muzzle currently points at the target.
type AimResolver interface {
	PointingAtTarget() bool
}

// FireResult describes one permitted fire attempt.
type FireResult struct {
	Agent  AgentID
	At     time.Duration
	Hit    bool
	Damage float64
	Point  geom.Vec3
}
