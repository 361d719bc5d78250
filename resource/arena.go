package resource

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// Duration is a time.Duration that reads "200ms"-style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Arena is one arena definition file.
type Arena struct {
	Name      string          `json:"name"`
	Player    PlayerSpawn     `json:"player"`
	Obstacles []Obstacle      `json:"obstacles"`
	Agents    []AgentSpawn    `json:"agents"`
	Combat    CombatOverrides `json:"combat"`
}

// PlayerSpawn places the target.
type PlayerSpawn struct {
	Position geom.Vec3 `json:"position"`
	Health   float64   `json:"health"`
	Radius   float64   `json:"radius"`
}

// Obstacle is a static collider. Shape is "box" (Size) or "sphere" (Radius).
type Obstacle struct {
	Name   string    `json:"name"`
	Layer  string    `json:"layer"`
	Shape  string    `json:"shape"`
	Center geom.Vec3 `json:"center"`
	Size   geom.Vec3 `json:"size"`
	Radius float64   `json:"radius"`
}

// AgentSpawn places one hostile agent.
type AgentSpawn struct {
	Name     string          `json:"name"`
	Position geom.Vec3       `json:"position"`
	Heading  float64         `json:"heading"` // degrees, 0 faces +Z
	Route    []geom.Vec3     `json:"route"`
	Muzzle   geom.Vec3       `json:"muzzle"` // local offset of the aiming rig
	Combat   CombatOverrides `json:"combat"`
}

// CombatOverrides replaces individual values of the configured agent tuning.
// Nil fields keep the value from the layer below.
type CombatOverrides struct {
	AttackRange     *float64  `json:"attack_range,omitempty"`
	FieldOfView     *float64  `json:"field_of_view,omitempty"`
	SearchDuration  *Duration `json:"search_duration,omitempty"`
	LookAroundAngle *float64  `json:"look_around_angle,omitempty"`
	LookAroundSpeed *float64  `json:"look_around_speed,omitempty"`
	FireInterval    *Duration `json:"fire_interval,omitempty"`
	Damage          *float64  `json:"damage,omitempty"`
	IgnoreLayers    []string  `json:"ignore_layers,omitempty"`
	AlertOnFire     *bool     `json:"alert_on_fire,omitempty"`
	MoveSpeed       *float64  `json:"move_speed,omitempty"`
}

// Merge layers o over base; fields set in o win.
func (o CombatOverrides) Merge(base CombatOverrides) CombatOverrides {
	out := base
	if o.AttackRange != nil {
		out.AttackRange = o.AttackRange
	}
	if o.FieldOfView != nil {
		out.FieldOfView = o.FieldOfView
	}
	if o.SearchDuration != nil {
		out.SearchDuration = o.SearchDuration
	}
	if o.LookAroundAngle != nil {
		out.LookAroundAngle = o.LookAroundAngle
	}
	if o.LookAroundSpeed != nil {
		out.LookAroundSpeed = o.LookAroundSpeed
	}
	if o.FireInterval != nil {
		out.FireInterval = o.FireInterval
	}
	if o.Damage != nil {
		out.Damage = o.Damage
	}
	if o.IgnoreLayers != nil {
		out.IgnoreLayers = o.IgnoreLayers
	}
	if o.AlertOnFire != nil {
		out.AlertOnFire = o.AlertOnFire
	}
	if o.MoveSpeed != nil {
		out.MoveSpeed = o.MoveSpeed
	}
	return out
}

// ParseMask turns layer names into a physics mask.
func ParseMask(names []string) (physics.Mask, error) {
	var m physics.Mask
	for _, n := range names {
		l, ok := physics.ParseLayer(n)
		if !ok {
			return 0, fmt.Errorf("unknown layer %q", n)
		}
		m |= physics.Mask(l)
	}
	return m, nil
}

// Validate checks the definition for structural errors.
func (a *Arena) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("arena: missing name")
	}
	if len(a.Agents) == 0 {
		return fmt.Errorf("arena %s: no agents", a.Name)
	}
	for i, o := range a.Obstacles {
		if _, ok := physics.ParseLayer(o.Layer); !ok {
			return fmt.Errorf("arena %s: obstacle %d: unknown layer %q", a.Name, i, o.Layer)
		}
		switch o.Shape {
		case "box", "":
			if o.Size[0] <= 0 || o.Size[1] <= 0 || o.Size[2] <= 0 {
				return fmt.Errorf("arena %s: obstacle %d: box size must be positive", a.Name, i)
			}
		case "sphere":
			if o.Radius <= 0 {
				return fmt.Errorf("arena %s: obstacle %d: sphere radius must be positive", a.Name, i)
			}
		default:
			return fmt.Errorf("arena %s: obstacle %d: unknown shape %q", a.Name, i, o.Shape)
		}
	}
	if _, err := ParseMask(a.Combat.IgnoreLayers); err != nil {
		return fmt.Errorf("arena %s: combat: %w", a.Name, err)
	}
	seen := make(map[string]bool, len(a.Agents))
	for i, ag := range a.Agents {
		if ag.Name == "" {
			return fmt.Errorf("arena %s: agent %d: missing name", a.Name, i)
		}
		if seen[ag.Name] {
			return fmt.Errorf("arena %s: duplicate agent %q", a.Name, ag.Name)
		}
		seen[ag.Name] = true
		if _, err := ParseMask(ag.Combat.IgnoreLayers); err != nil {
			return fmt.Errorf("arena %s: agent %s: %w", a.Name, ag.Name, err)
		}
		if r := ag.Combat.AttackRange; r != nil && *r <= 0 {
			return fmt.Errorf("arena %s: agent %s: attack_range must be > 0", a.Name, ag.Name)
		}
	}
	return nil
}

// Collider builds the physics shape of an obstacle.
func (o Obstacle) Collider() (physics.Layer, physics.Shape) {
	layer, _ := physics.ParseLayer(o.Layer)
	if o.Shape == "sphere" {
		return layer, physics.Sphere{C: o.Center, Radius: o.Radius}
	}
	return layer, physics.BoxAt(o.Center, o.Size)
}
