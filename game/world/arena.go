package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/sentrysim/audit"
	"github.com/kasuganosora/sentrysim/config"
	"github.com/kasuganosora/sentrysim/game/ai"
	"github.com/kasuganosora/sentrysim/game/alert"
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/nav"
	"github.com/kasuganosora/sentrysim/game/physics"
	"github.com/kasuganosora/sentrysim/model"
	"github.com/kasuganosora/sentrysim/plugin/hook"
	"github.com/kasuganosora/sentrysim/resource"
	"github.com/kasuganosora/sentrysim/scheduler"
	"go.uber.org/zap"
)

var (
	ErrArenaStopped = errors.New("arena stopped")
	ErrMatchOver    = errors.New("match is over")
	ErrPlayerDown   = errors.New("player is down")
	ErrBadDirection = errors.New("direction must be non-zero")
)

// agentBodySize is the collider of every agent, centered on its position.
var agentBodySize = geom.V(0.8, 2, 0.8)

// defaultMuzzle sits just past the front face of the agent body.
var defaultMuzzle = geom.V(0, 0, 0.5)

// CombatLog records combat events. *audit.Service implements it.
type CombatLog interface {
	Log(entry audit.Entry)
}

// Deps are the optional collaborators of an Arena.
type Deps struct {
	Hooks  *hook.Center
	Audit  CombatLog
	Sink   Sink
	Logger *zap.Logger
}

type agentRuntime struct {
	id    ai.AgentID
	ctrl  *ai.Controller
	mover *nav.Mover
	aim   *ai.MuzzleAim
	body  physics.BodyID
	cue   int
	beam  ai.Beam
}

// Arena is one running match: a scene, the player and the agents hunting it.
// All simulation state is owned by the arena loop; other goroutines go through
// the command queue or read the published Snapshot.
type Arena struct {
	id         string
	definition string
	cfg        *config.Config
	tick       time.Duration

	scene  *physics.Scene
	bus    *alert.Bus
	player *Player
	agents []*agentRuntime
	byID   map[ai.AgentID]*agentRuntime
	byBody map[physics.BodyID]*agentRuntime
	score  *Scorekeeper
	cues   *scheduler.Deferred

	now         time.Duration
	cueClock    time.Duration // keeps running after the match ends
	alertSource string
	traceID     string

	hooks  *hook.Center
	audit  CombatLog
	sink   Sink
	logger *zap.Logger

	cmds      chan func()
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	snap atomic.Pointer[Snapshot]

	createdAt time.Time
	endedAt   time.Time
}

// NewArena builds a match from a definition. The arena does not advance until
// Start is called.
func NewArena(def *resource.Arena, playerName string, cfg *config.Config, deps Deps) (*Arena, error) {
	if def == nil {
		return nil, fmt.Errorf("world: nil arena definition")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if playerName == "" {
		playerName = "player"
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hooks := deps.Hooks
	if hooks == nil {
		hooks = hook.NewCenter(logger)
	}
	tick := time.Duration(cfg.Sim.TickMs) * time.Millisecond
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}

	id := uuid.New().String()
	a := &Arena{
		id:         id,
		definition: def.Name,
		cfg:        cfg,
		tick:       tick,
		scene:      physics.NewScene(),
		bus:        alert.NewBus(),
		byID:       make(map[ai.AgentID]*agentRuntime, len(def.Agents)),
		byBody:     make(map[physics.BodyID]*agentRuntime, len(def.Agents)),
		hooks:      hooks,
		audit:      deps.Audit,
		sink:       deps.Sink,
		logger:     logger.With(zap.String("arena_id", id), zap.String("definition", def.Name)),
		cmds:       make(chan func(), 64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		createdAt:  time.Now(),
	}
	a.cues = scheduler.NewDeferred(a.logger)

	for _, o := range def.Obstacles {
		layer, shape := o.Collider()
		a.scene.Add(o.Name, layer, shape)
	}

	health := def.Player.Health
	if health <= 0 {
		health = cfg.Player.Health
	}
	a.player = NewPlayer(playerName, a.scene, def.Player.Position, def.Player.Radius, health, cfg.Player.MoveSpeed)
	a.player.EyeHeight = cfg.Player.EyeHeight
	a.player.onDown = a.onPlayerDown

	ids := make([]ai.AgentID, 0, len(def.Agents))
	for _, spawn := range def.Agents {
		ag, err := a.spawnAgent(def, spawn)
		if err != nil {
			return nil, err
		}
		a.agents = append(a.agents, ag)
		a.byID[ag.id] = ag
		a.byBody[ag.body] = ag
		ids = append(ids, ag.id)
	}
	a.score = NewScorekeeper(ids)

	a.bus.Subscribe(a.onAlert)
	for _, ag := range a.agents {
		ag.ctrl.Activate()
	}
	a.publish()
	return a, nil
}

func (a *Arena) spawnAgent(def *resource.Arena, spawn resource.AgentSpawn) (*agentRuntime, error) {
	id := ai.AgentID(spawn.Name)
	cfg, speed, err := agentConfig(a.cfg.Combat, spawn.Combat.Merge(def.Combat), spawn.Route)
	if err != nil {
		return nil, fmt.Errorf("world: agent %s: %w", id, err)
	}

	ag := &agentRuntime{id: id}
	ag.mover = nav.NewMover(spawn.Position, speed)
	ag.body = a.scene.Add("agent:"+spawn.Name, physics.LayerAgent, physics.BoxAt(spawn.Position, agentBodySize))
	ag.mover.Bind(a.scene, ag.body)

	offset := spawn.Muzzle
	if offset == (geom.Vec3{}) {
		offset = defaultMuzzle
	}
	mount := ai.NewMount(offset)
	if ag.aim, err = ai.NewMuzzleAim(a.scene, a.player.Body(), mount, a.cfg.Combat.AimRange); err != nil {
		return nil, err
	}
	perception, err := ai.NewRaycastPerception(a.scene, a.player.Body())
	if err != nil {
		return nil, err
	}

	ag.ctrl, err = ai.NewController(id, cfg, ai.Deps{
		Nav:           ag.mover,
		Perception:    perception,
		Aim:           ag.aim,
		Target:        &shotTarget{arena: a, shooter: id},
		Cue:           a,
		Score:         a,
		Bus:           a.bus,
		Logger:        a.logger,
		OnFire:        a.onAgentFire,
		OnStateChange: a.onStateChange,
	})
	if err != nil {
		return nil, fmt.Errorf("world: agent %s: %w", id, err)
	}
	ag.ctrl.SetOrientation(geom.Yaw(spawn.Heading))
	mount.Attach(ag.ctrl)
	return ag, nil
}

// agentConfig layers overrides onto the configured defaults.
func agentConfig(base config.CombatConfig, ov resource.CombatOverrides, route []geom.Vec3) (ai.Config, float64, error) {
	cfg := ai.Config{
		AttackRange:       base.AttackRange,
		FieldOfView:       base.FieldOfView,
		SearchDuration:    base.SearchDuration,
		LookAroundAngle:   base.LookAroundAngle,
		LookAroundSpeed:   base.LookAroundSpeed,
		FireInterval:      base.FireInterval,
		Damage:            base.Damage,
		SearchTurnRate:    base.SearchTurnRate,
		AttackTurnRate:    base.AttackTurnRate,
		AlertOnFire:       base.AlertOnFire,
		WaypointTolerance: base.WaypointTolerance,
		Route:             route,
	}
	speed := base.MoveSpeed
	layers := base.IgnoreLayers

	if ov.AttackRange != nil {
		cfg.AttackRange = *ov.AttackRange
	}
	if ov.FieldOfView != nil {
		cfg.FieldOfView = *ov.FieldOfView
	}
	if ov.SearchDuration != nil {
		cfg.SearchDuration = ov.SearchDuration.Std()
	}
	if ov.LookAroundAngle != nil {
		cfg.LookAroundAngle = *ov.LookAroundAngle
	}
	if ov.LookAroundSpeed != nil {
		cfg.LookAroundSpeed = *ov.LookAroundSpeed
	}
	if ov.FireInterval != nil {
		cfg.FireInterval = ov.FireInterval.Std()
	}
	if ov.Damage != nil {
		cfg.Damage = *ov.Damage
	}
	if ov.AlertOnFire != nil {
		cfg.AlertOnFire = *ov.AlertOnFire
	}
	if ov.MoveSpeed != nil {
		speed = *ov.MoveSpeed
	}
	if ov.IgnoreLayers != nil {
		layers = ov.IgnoreLayers
	}

	mask, err := resource.ParseMask(layers)
	if err != nil {
		return ai.Config{}, 0, err
	}
	cfg.IgnoreMask = mask
	return cfg, speed, nil
}

// ---- Loop ----

// Start launches the arena loop. Calling it again has no effect.
func (a *Arena) Start() {
	a.startOnce.Do(func() {
		a.started.Store(true)
		a.emit(MatchEvent{Type: EventStarted})
		go a.run()
	})
}

func (a *Arena) run() {
	defer close(a.doneCh)
	defer a.abort()
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	a.logger.Info("arena started", zap.Int("agents", len(a.agents)))
	for {
		select {
		case <-ticker.C:
			a.drain()
			a.Step(a.tick)
		case <-a.stopCh:
			a.drain()
			return
		}
	}
}

// drain runs queued commands without blocking.
func (a *Arena) drain() {
	for {
		select {
		case fn := <-a.cmds:
			a.safe("command", fn)
		default:
			return
		}
	}
}

func (a *Arena) safe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("arena panic", zap.String("in", what), zap.Any("recover", r))
		}
	}()
	fn()
}

// Stop ends the arena. A running match is recorded as aborted. Idempotent.
func (a *Arena) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.started.Load() {
		<-a.doneCh
		return
	}
	a.abort()
}

// Done is closed once the loop has exited.
func (a *Arena) Done() <-chan struct{} { return a.doneCh }

func (a *Arena) abort() {
	if a.score.Abort() {
		a.finish()
	}
	for _, ag := range a.agents {
		ag.ctrl.Deactivate()
	}
	a.cues.Flush()
	a.publish()
	a.logger.Info("arena stopped", zap.String("outcome", a.score.Outcome()))
}

// Step advances the simulation by dt. It must only be called by the loop, or
// by tests that never Start the arena.
func (a *Arena) Step(dt time.Duration) {
	a.cueClock += dt
	if a.score.Over() {
		// Pending cues still run out; the rest of the scene is frozen.
		if a.cues.Advance(a.cueClock) > 0 {
			a.publish()
		}
		return
	}
	a.now += dt
	a.cues.Advance(a.cueClock)

	secs := dt.Seconds()
	a.player.Step(secs)
	for _, ag := range a.agents {
		if ag.ctrl.Alive() {
			ag.mover.Step(secs)
		}
	}

	f := ai.Frame{Now: a.now, Delta: dt}
	for _, ag := range a.agents {
		ag.ctrl.Tick(f)
	}

	for _, ag := range a.agents {
		if ag.ctrl.Alive() {
			ag.beam = ag.aim.Trace()
		} else {
			ag.beam = ai.Beam{}
		}
	}
	a.publish()
}

// submit queues fn for the loop and waits for it to run.
func (a *Arena) submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}
	select {
	case a.cmds <- cmd:
	case <-a.stopCh:
		return ErrArenaStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-a.doneCh:
		return ErrArenaStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- Commands ----

// MovePlayer walks the player toward dest.
func (a *Arena) MovePlayer(ctx context.Context, dest geom.Vec3) error {
	var err error
	if serr := a.submit(ctx, func() { err = a.movePlayer(dest) }); serr != nil {
		return serr
	}
	return err
}

func (a *Arena) movePlayer(dest geom.Vec3) error {
	if a.score.Over() {
		return ErrMatchOver
	}
	if !a.player.Alive() {
		return ErrPlayerDown
	}
	a.player.MoveTo(dest)
	return nil
}

// ShotResult is the outcome of a player shot.
type ShotResult struct {
	Hit    bool      `json:"hit"`
	Body   string    `json:"body,omitempty"`
	Agent  string    `json:"agent,omitempty"`
	Point  geom.Vec3 `json:"point"`
	Damage float64   `json:"damage"`
}

// Shoot fires the player's weapon along dir.
func (a *Arena) Shoot(ctx context.Context, traceID string, dir geom.Vec3) (ShotResult, error) {
	var (
		res ShotResult
		err error
	)
	if serr := a.submit(ctx, func() { res, err = a.shoot(traceID, dir) }); serr != nil {
		return ShotResult{}, serr
	}
	return res, err
}

// shoot casts from the player's eye past the player's own body. The first
// agent on the ray takes the shot; every shot raises the alert.
func (a *Arena) shoot(traceID string, dir geom.Vec3) (ShotResult, error) {
	if a.score.Over() {
		return ShotResult{}, ErrMatchOver
	}
	if !a.player.Alive() {
		return ShotResult{}, ErrPlayerDown
	}
	if _, ok := geom.Normalize(dir); !ok {
		return ShotResult{}, ErrBadDirection
	}
	a.traceID = traceID
	defer func() { a.traceID = "" }()

	var res ShotResult
	mask := physics.AllLayers.Without(physics.Mask(physics.LayerPlayer))
	hit, ok := a.scene.Raycast(a.player.Eye(), dir, a.cfg.Player.ShotRange, mask)
	if ok {
		res.Hit = true
		res.Point = hit.Point
		if b, found := a.scene.Get(hit.Body); found {
			res.Body = b.Name
		}
		if ag, isAgent := a.byBody[hit.Body]; isAgent {
			res.Agent = string(ag.id)
			ev := &hook.DamageEvent{Arena: a.id, Attacker: a.player.Name, Victim: res.Agent, Amount: a.cfg.Player.ShotDamage}
			if out, herr := a.hooks.Trigger(context.Background(), hook.BeforeDamage, ev); herr == nil {
				if e, ok := out.(*hook.DamageEvent); ok {
					ev = e
				}
				if ev.Amount > 0 {
					res.Damage = ev.Amount
					ag.ctrl.TakeDamage(ev.Amount, hit.Point)
				}
			}
		}
	}
	a.record(model.KindPlayerShot, a.player.Name, res)
	a.raise(a.player.Name)
	a.publish()
	return res, nil
}

// RaiseAlert broadcasts the Alert Signal on behalf of source.
func (a *Arena) RaiseAlert(ctx context.Context, source string) error {
	var err error
	if serr := a.submit(ctx, func() {
		if a.score.Over() {
			err = ErrMatchOver
			return
		}
		a.raise(source)
	}); serr != nil {
		return serr
	}
	return err
}

func (a *Arena) raise(source string) {
	a.alertSource = source
	a.bus.Raise()
	a.alertSource = ""
}

// ---- Collaborators of the controllers ----

// PlayShot shows the muzzle cue of id for the configured duration.
func (a *Arena) PlayShot(id ai.AgentID) {
	ag, ok := a.byID[id]
	if !ok {
		return
	}
	ag.cue++
	a.cues.After(a.cfg.Combat.CueDuration, "cue:"+string(id), func() {
		if ag.cue > 0 {
			ag.cue--
		}
	})
}

// NotifyEliminated takes a dead agent out of the scene and the tally.
func (a *Arena) NotifyEliminated(id ai.AgentID) {
	ag, ok := a.byID[id]
	if !ok {
		return
	}
	a.scene.SetEnabled(ag.body, false)
	ag.mover.Stop()

	counted, won := a.score.Eliminated(id)
	if !counted {
		return
	}
	killer := a.player.Name
	a.logger.Info("agent eliminated",
		zap.String("agent_id", string(id)),
		zap.Int("remaining", a.score.Remaining()))
	a.hooks.Trigger(context.Background(), hook.AfterAgentEliminated,
		&hook.EliminationEvent{Arena: a.id, Agent: string(id), Killer: killer})
	a.record(model.KindElimination, string(id), map[string]interface{}{
		"killer": killer,
		"state":  ag.ctrl.State().String(),
	})
	a.emit(MatchEvent{
		Type:       EventElimination,
		Agent:      string(id),
		AgentState: ag.ctrl.State().String(),
		Killer:     killer,
	})
	if won {
		a.finish()
	}
}

func (a *Arena) onPlayerDown() {
	a.logger.Info("player down", zap.String("player", a.player.Name))
	if a.score.PlayerDown() {
		a.finish()
	}
}

// finish reports a decided match and silences the agents.
func (a *Arena) finish() {
	outcome := a.score.Outcome()
	a.endedAt = time.Now()
	for _, ag := range a.agents {
		ag.ctrl.Deactivate()
	}
	a.logger.Info("match over", zap.String("outcome", outcome), zap.Int("kills", a.score.Kills()))
	a.hooks.Trigger(context.Background(), hook.OnMatchOver,
		&hook.MatchEvent{Arena: a.id, Outcome: outcome, Kills: a.score.Kills()})
	a.record(model.KindMatchOver, a.player.Name, map[string]interface{}{
		"outcome": outcome,
		"kills":   a.score.Kills(),
	})
	a.emit(MatchEvent{Type: EventOver})
}

func (a *Arena) onAgentFire(res ai.FireResult) {
	if ag, ok := a.byID[res.Agent]; ok && ag.ctrl.Config().AlertOnFire {
		a.alertSource = string(res.Agent)
	}
	a.hooks.Trigger(context.Background(), hook.AfterShot,
		&hook.ShotEvent{Arena: a.id, Shooter: string(res.Agent), Hit: res.Hit, Damage: res.Damage})
	a.record(model.KindShot, string(res.Agent), map[string]interface{}{
		"hit":    res.Hit,
		"damage": res.Damage,
	})
}

func (a *Arena) onStateChange(id ai.AgentID, from, to ai.State) {
	a.record(model.KindState, string(id), map[string]string{
		"from": from.String(),
		"to":   to.String(),
	})
}

func (a *Arena) onAlert() {
	source := a.alertSource
	if source == "" {
		source = "unknown"
	}
	a.alertSource = ""
	a.logger.Debug("alert raised", zap.String("source", source))
	a.hooks.Trigger(context.Background(), hook.OnAlert, &hook.AlertEvent{Arena: a.id, Source: source})
	a.record(model.KindAlert, source, nil)
}

// shotTarget routes an agent's hit on the player through the damage hooks.
type shotTarget struct {
	arena   *Arena
	shooter ai.AgentID
}

func (t *shotTarget) Position() geom.Vec3 { return t.arena.player.Position() }
func (t *shotTarget) Alive() bool         { return t.arena.player.Alive() }

func (t *shotTarget) TakeDamage(amount float64, hitPoint geom.Vec3) {
	a := t.arena
	ev := &hook.DamageEvent{Arena: a.id, Attacker: string(t.shooter), Victim: a.player.Name, Amount: amount}
	out, err := a.hooks.Trigger(context.Background(), hook.BeforeDamage, ev)
	if err != nil {
		return
	}
	if e, ok := out.(*hook.DamageEvent); ok {
		ev = e
	}
	a.player.TakeDamage(ev.Amount, hitPoint)
}

// ---- Reporting ----

func (a *Arena) record(kind, actor string, payload interface{}) {
	if a.audit == nil {
		return
	}
	a.audit.Log(audit.Entry{
		TraceID: a.traceID,
		ArenaID: a.id,
		Kind:    kind,
		Actor:   actor,
		Payload: payload,
		SimTime: a.now,
	})
}

func (a *Arena) emit(ev MatchEvent) {
	if a.sink == nil {
		return
	}
	ev.ArenaID = a.id
	ev.Definition = a.definition
	ev.Player = a.player.Name
	ev.Outcome = a.score.Outcome()
	ev.Agents = len(a.agents)
	ev.Kills = a.score.Kills()
	ev.Remaining = a.score.Remaining()
	ev.SimTime = a.now.Seconds()
	ev.At = time.Now()
	a.sink.Publish(ev)
}

// ---- Snapshot ----

// PlayerView is the published state of the player.
type PlayerView struct {
	Name      string    `json:"name"`
	Position  geom.Vec3 `json:"position"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"max_health"`
	Alive     bool      `json:"alive"`
}

// BeamView is where an agent's aiming beam ends.
type BeamView struct {
	Start geom.Vec3 `json:"start"`
	End   geom.Vec3 `json:"end"`
	Hit   bool      `json:"hit"`
}

// AgentView is the published state of one agent.
type AgentView struct {
	ai.Snapshot
	Cue  bool      `json:"cue"`
	Beam *BeamView `json:"beam,omitempty"`
	// Destination is where the agent is walking; nil while it holds position.
	Destination *geom.Vec3 `json:"destination,omitempty"`
}

// Snapshot is an immutable view of the arena after a step.
type Snapshot struct {
	ID         string      `json:"id"`
	Definition string      `json:"definition"`
	SimTime    float64     `json:"sim_time"`
	Outcome    string      `json:"outcome"`
	Kills      int         `json:"kills"`
	Remaining  int         `json:"remaining"`
	Player     PlayerView  `json:"player"`
	Agents     []AgentView `json:"agents"`
	CreatedAt  time.Time   `json:"created_at"`
	EndedAt    *time.Time  `json:"ended_at,omitempty"`
}

func (a *Arena) publish() {
	s := &Snapshot{
		ID:         a.id,
		Definition: a.definition,
		SimTime:    a.now.Seconds(),
		Outcome:    a.score.Outcome(),
		Kills:      a.score.Kills(),
		Remaining:  a.score.Remaining(),
		Player: PlayerView{
			Name:      a.player.Name,
			Position:  a.player.Position(),
			Health:    a.player.Health(),
			MaxHealth: a.player.MaxHealth(),
			Alive:     a.player.Alive(),
		},
		Agents:    make([]AgentView, 0, len(a.agents)),
		CreatedAt: a.createdAt,
	}
	if !a.endedAt.IsZero() {
		ended := a.endedAt
		s.EndedAt = &ended
	}
	for _, ag := range a.agents {
		v := AgentView{Snapshot: ag.ctrl.Snapshot(), Cue: ag.cue > 0}
		if ag.beam != (ai.Beam{}) {
			v.Beam = &BeamView{Start: ag.beam.Start, End: ag.beam.End, Hit: ag.beam.Hit}
		}
		if dest, ok := ag.mover.Destination(); ok && !ag.mover.Stopped() && ag.ctrl.Alive() && dest != v.Position {
			v.Destination = &dest
		}
		s.Agents = append(s.Agents, v)
	}
	a.snap.Store(s)
}

// Snapshot returns the state published by the latest step. Safe for any goroutine.
func (a *Arena) Snapshot() *Snapshot { return a.snap.Load() }

func (a *Arena) ID() string         { return a.id }
func (a *Arena) Definition() string { return a.definition }

// Bus exposes the arena's alert bus.
func (a *Arena) Bus() *alert.Bus { return a.bus }
