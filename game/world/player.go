package world

import (
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/nav"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// Player is the target every agent in an arena hunts. It is driven by
// operator commands and owned by the arena loop.
type Player struct {
	Name      string
	EyeHeight float64

	mover     *nav.Mover
	scene     *physics.Scene
	body      physics.BodyID
	health    float64
	maxHealth float64
	dead      bool

	onDown func()
}

// NewPlayer spawns the player's body in scene at pos.
func NewPlayer(name string, scene *physics.Scene, pos geom.Vec3, radius, health, speed float64) *Player {
	if radius <= 0 {
		radius = 0.5
	}
	p := &Player{
		Name:      name,
		mover:     nav.NewMover(pos, speed),
		scene:     scene,
		health:    health,
		maxHealth: health,
	}
	p.body = scene.Add("player:"+name, physics.LayerPlayer, physics.Sphere{C: pos, Radius: radius})
	p.mover.Bind(scene, p.body)
	return p
}

// Body returns the scene body the agents raycast for.
func (p *Player) Body() physics.BodyID { return p.body }

func (p *Player) Position() geom.Vec3 { return p.mover.Position() }

func (p *Player) Alive() bool { return !p.dead }

func (p *Player) Health() float64 { return p.health }

func (p *Player) MaxHealth() float64 { return p.maxHealth }

// Eye is the origin of the player's shots.
func (p *Player) Eye() geom.Vec3 {
	return p.Position().Add(geom.V(0, p.EyeHeight, 0))
}

// MoveTo walks the player toward dest at its movement speed.
func (p *Player) MoveTo(dest geom.Vec3) {
	if p.dead {
		return
	}
	p.mover.SetDestination(dest)
}

// Step advances the player's movement by dt seconds.
func (p *Player) Step(dt float64) {
	if p.dead {
		return
	}
	p.mover.Step(dt)
}

// TakeDamage lowers health. Reaching zero disables the body and reports the
// player down exactly once.
func (p *Player) TakeDamage(amount float64, _ geom.Vec3) {
	if p.dead {
		return
	}
	p.health -= amount
	if p.health > 0 {
		return
	}
	p.health = 0
	p.dead = true
	p.scene.SetEnabled(p.body, false)
	p.mover.Stop()
	if p.onDown != nil {
		p.onDown()
	}
}
