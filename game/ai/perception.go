package ai

import (
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// RaycastPerception is line-of-sight by a single ray against the scene.
// Sight holds only when the first non-ignored body on the ray is the target;
// any obstacle in front blocks it. No field-of-view cone is applied.
type RaycastPerception struct {
	Scene  *physics.Scene
	Target physics.BodyID
}

// NewRaycastPerception binds a scene to the target body.
func NewRaycastPerception(scene *physics.Scene, target physics.BodyID) (*RaycastPerception, error) {
	if scene == nil {
		return nil, missing("perception scene")
	}
	return &RaycastPerception{Scene: scene, Target: target}, nil
}

// CanSee casts from origin along dir up to maxDist on every layer except ignore.
func (p *RaycastPerception) CanSee(origin, dir geom.Vec3, maxDist float64, ignore physics.Mask) bool {
	if !p.Scene.Alive(p.Target) {
		return false
	}
	hit, ok := p.Scene.Raycast(origin, dir, maxDist, physics.AllLayers.Without(ignore))
	if !ok {
		return false
	}
	return hit.Body == p.Target
}
