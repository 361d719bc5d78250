package ai

import (
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// ErrInvalidConfig is returned for configuration values outside their domain.
var ErrInvalidConfig = errors.New("ai: invalid config")

// ErrMissingDependency is returned when a required collaborator is nil.
var ErrMissingDependency = errors.New("ai: missing dependency")

// Config is the immutable per-agent configuration.
type Config struct {
	AttackRange float64
	// FieldOfView is carried for completeness; line-of-sight does not use it.
	FieldOfView     float64
	SearchDuration  time.Duration
	LookAroundAngle float64 // degrees
	LookAroundSpeed float64 // multiplier of elapsed seconds inside sin()
	FireInterval    time.Duration
	IgnoreMask      physics.Mask
	Damage          float64
	SearchTurnRate  float64
	AttackTurnRate  float64
	AlertOnFire     bool
	Route           []geom.Vec3
	// WaypointTolerance is the remaining distance under which a waypoint counts as reached.
	WaypointTolerance float64
}

// DefaultConfig returns the stock tuning of a hostile agent.
func DefaultConfig() Config {
	return Config{
		AttackRange:       10,
		FieldOfView:       60,
		SearchDuration:    5 * time.Second,
		LookAroundAngle:   45,
		LookAroundSpeed:   60,
		FireInterval:      200 * time.Millisecond,
		Damage:            10,
		SearchTurnRate:    1.5,
		AttackTurnRate:    5,
		WaypointTolerance: 0.5,
	}
}

// Validate checks value domains.
func (c Config) Validate() error {
	switch {
	case c.AttackRange <= 0:
		return fmt.Errorf("%w: attack range must be > 0, got %v", ErrInvalidConfig, c.AttackRange)
	case c.SearchDuration < 0:
		return fmt.Errorf("%w: search duration must be >= 0", ErrInvalidConfig)
	case c.FireInterval < 0:
		return fmt.Errorf("%w: fire interval must be >= 0", ErrInvalidConfig)
	case c.SearchTurnRate < 0 || c.AttackTurnRate < 0:
		return fmt.Errorf("%w: turn rates must be >= 0", ErrInvalidConfig)
	case c.WaypointTolerance <= 0:
		return fmt.Errorf("%w: waypoint tolerance must be > 0", ErrInvalidConfig)
	}
	return nil
}
