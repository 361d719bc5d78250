package ai

import (
	"fmt"
	"math"
	"time"

	"github.com/kasuganosora/sentrysim/game/alert"
	"github.com/kasuganosora/sentrysim/game/geom"
	"go.uber.org/zap"
)

// Deps are the collaborators of one Controller. Every field except the
// observers and Logger is required.
type Deps struct {
	Nav        Navigator
	Perception Perception
	Aim        AimResolver
	Target     Target
	Cue        EffectCue
	Score      Scorekeeper
	Bus        *alert.Bus
	Logger     *zap.Logger

	// OnFire observes every permitted fire attempt.
	OnFire func(FireResult)
	// OnStateChange observes every transition.
	OnStateChange func(id AgentID, from, to State)
}

func missing(what string) error {
	return fmt.Errorf("%w: %s", ErrMissingDependency, what)
}

func (d Deps) validate() error {
	switch {
	case d.Nav == nil:
		return missing("navigator")
	case d.Perception == nil:
		return missing("perception")
	case d.Aim == nil:
		return missing("aim resolver")
	case d.Target == nil:
		return missing("target")
	case d.Cue == nil:
		return missing("effect cue")
	case d.Score == nil:
		return missing("scorekeeper")
	case d.Bus == nil:
		return missing("alert bus")
	}
	return nil
}

// Controller is the combat state machine of one hostile agent.
// It is owned by a single tick loop; nothing here is safe for concurrent use.
type Controller struct {
	id   AgentID
	cfg  Config
	deps Deps
	log  *zap.Logger

	state        State
	orientation  geom.Quat
	waypoint     int
	searchTimer  time.Duration
	fireCooldown time.Duration
	alerted      bool
	dead         bool

	sub    alert.Subscription
	active bool
}

// NewController validates cfg and deps and returns an agent in Patrol.
func NewController(id AgentID, cfg Config, deps Deps) (*Controller, error) {
	if id == "" {
		return nil, missing("agent id")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	route := make([]geom.Vec3, len(cfg.Route))
	copy(route, cfg.Route)
	cfg.Route = route
	return &Controller{
		id:          id,
		cfg:         cfg,
		deps:        deps,
		log:         log.With(zap.String("agent_id", string(id))),
		state:       StatePatrol,
		orientation: geom.Identity(),
	}, nil
}

// SetOrientation places the agent's initial facing.
func (c *Controller) SetOrientation(q geom.Quat) {
	if c.dead {
		return
	}
	c.orientation = q.Normalize()
}

// Activate subscribes the agent to the alert bus. Idempotent.
func (c *Controller) Activate() {
	if c.active || c.dead {
		return
	}
	c.sub = c.deps.Bus.Subscribe(c.onAlert)
	c.active = true
}

// Deactivate unsubscribes from the alert bus. Idempotent.
func (c *Controller) Deactivate() {
	if !c.active {
		return
	}
	c.deps.Bus.Unsubscribe(c.sub)
	c.active = false
	c.alerted = false
}

// onAlert latches the signal for the next Patrol evaluation.
// Agents outside Patrol ignore it.
func (c *Controller) onAlert() {
	if c.dead || c.state != StatePatrol {
		return
	}
	c.alerted = true
}

// Tick advances the machine by one frame. A dead agent does nothing.
func (c *Controller) Tick(f Frame) {
	if c.dead {
		return
	}
	switch c.state {
	case StateSearch:
		c.alerted = false
		c.search(f)
	case StateAttack:
		c.alerted = false
		c.attack(f)
	default:
		c.patrol(f)
	}
}

func (c *Controller) patrol(f Frame) {
	c.deps.Nav.Resume()

	if c.alerted {
		c.alerted = false
		c.searchTimer = c.cfg.SearchDuration
		c.transition(StateSearch)
		return
	}

	if n := len(c.cfg.Route); n > 0 {
		if !c.deps.Nav.PathPending() && c.deps.Nav.RemainingDistance() < c.cfg.WaypointTolerance {
			c.waypoint = (c.waypoint + 1) % n
			c.deps.Nav.SetDestination(c.cfg.Route[c.waypoint])
		}
	}

	if c.canEngage() {
		c.transition(StateAttack)
	}
}

func (c *Controller) search(f Frame) {
	c.deps.Nav.Stop()

	c.searchTimer -= f.Delta

	pos := c.deps.Nav.Position()
	look := geom.LookRotation(c.deps.Target.Position().Sub(pos))
	offset := math.Sin(f.Now.Seconds()*c.cfg.LookAroundSpeed) * c.cfg.LookAroundAngle
	facing := look.Mul(geom.Yaw(offset))
	c.orientation = geom.Slerp(c.orientation, facing, f.Delta.Seconds()*c.cfg.SearchTurnRate)

	if c.searchTimer <= 0 {
		c.transition(StatePatrol)
	} else if c.canEngage() {
		c.transition(StateAttack)
	}
}

// attack checks for loss of track before firing, so the tick in which the
// agent reverts to Search still gets its fire attempt.
func (c *Controller) attack(f Frame) {
	if !c.canEngage() {
		c.searchTimer = c.cfg.SearchDuration
		c.transition(StateSearch)
	}

	// Re-issuing the current position holds the mover and cancels any residual path.
	pos := c.deps.Nav.Position()
	c.deps.Nav.SetDestination(pos)

	flat := geom.Flatten(c.deps.Target.Position().Sub(pos))
	if _, ok := geom.Normalize(flat); ok {
		c.orientation = geom.Slerp(c.orientation, geom.LookRotation(flat), f.Delta.Seconds()*c.cfg.AttackTurnRate)
	}

	if f.Now >= c.fireCooldown {
		c.fire(f)
		c.fireCooldown = f.Now + c.cfg.FireInterval
	}
}

// fire always plays the cue; damage lands only when the muzzle is on target.
func (c *Controller) fire(f Frame) {
	c.deps.Cue.PlayShot(c.id)

	res := FireResult{Agent: c.id, At: f.Now}
	if c.deps.Aim.PointingAtTarget() {
		res.Hit = true
		res.Damage = c.cfg.Damage
		res.Point = c.deps.Target.Position()
		c.deps.Target.TakeDamage(res.Damage, res.Point)
	}
	if c.deps.OnFire != nil {
		c.deps.OnFire(res)
	}
	if c.cfg.AlertOnFire {
		c.deps.Bus.Raise()
	}
}

// canEngage is the shared range + line-of-sight condition.
func (c *Controller) canEngage() bool {
	t := c.deps.Target
	if !t.Alive() {
		return false
	}
	pos := c.deps.Nav.Position()
	toTarget := t.Position().Sub(pos)
	if toTarget.Len() > c.cfg.AttackRange {
		return false
	}
	return c.deps.Perception.CanSee(pos, toTarget, c.cfg.AttackRange, c.cfg.IgnoreMask)
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.log.Debug("agent state change", zap.Stringer("from", from), zap.Stringer("to", to))
	if c.deps.OnStateChange != nil {
		c.deps.OnStateChange(c.id, from, to)
	}
}

// TakeDamage kills the agent. Any damage is lethal; repeated calls are no-ops.
func (c *Controller) TakeDamage(amount float64, hitPoint geom.Vec3) {
	if c.dead {
		return
	}
	c.dead = true
	c.Deactivate()
	c.log.Info("agent eliminated",
		zap.Float64("damage", amount),
		zap.Stringer("state", c.state))
	c.deps.Score.NotifyEliminated(c.id)
}

// ---- Accessors ----

func (c *Controller) ID() AgentID { return c.id }
func (c *Controller) State() State { return c.state }
func (c *Controller) Alive() bool { return !c.dead }
func (c *Controller) Position() geom.Vec3 { return c.deps.Nav.Position() }
func (c *Controller) Orientation() geom.Quat { return c.orientation }
func (c *Controller) SearchTimer() time.Duration { return c.searchTimer }
func (c *Controller) FireCooldown() time.Duration { return c.fireCooldown }
func (c *Controller) WaypointIndex() int { return c.waypoint }
func (c *Controller) Config() Config { return c.cfg }

// Snapshot is a read-only view of the agent.
type Snapshot struct {
	ID          AgentID   `json:"id"`
	State       string    `json:"state"`
	Alive       bool      `json:"alive"`
	Position    geom.Vec3 `json:"position"`
	Heading     float64   `json:"heading"`
	Waypoint    int       `json:"waypoint"`
	SearchTimer float64   `json:"search_timer"`
	Listening   bool      `json:"listening"` // subscribed to the alert bus
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		ID:          c.id,
		State:       c.state.String(),
		Alive:       !c.dead,
		Position:    c.Position(),
		Heading:     geom.Heading(c.orientation),
		Waypoint:    c.waypoint,
		SearchTimer: c.searchTimer.Seconds(),
		Listening:   c.active,
	}
}
