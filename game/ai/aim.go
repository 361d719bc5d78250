package ai

import (
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
)

// DefaultAimRange is the reach of the aiming rig.
const DefaultAimRange = 50.0

// Muzzle provides the origin and forward axis of the aiming rig.
// ok is false while the rig is not mounted on a body.
type Muzzle interface {
	Pose() (origin, forward geom.Vec3, ok bool)
}

// Posed is anything with a world position and orientation.
type Posed interface {
	Position() geom.Vec3
	Orientation() geom.Quat
}

// Mount is a muzzle fixed to a body at a local offset.
type Mount struct {
	Offset  geom.Vec3 // local space, +Z forward
	Forward geom.Vec3 // local aim axis, defaults to +Z
	body    Posed
}

// NewMount creates an unattached mount.
func NewMount(offset geom.Vec3) *Mount {
	return &Mount{Offset: offset, Forward: geom.Forward}
}

// Attach fixes the mount to body.
func (m *Mount) Attach(body Posed) { m.body = body }

// Pose implements Muzzle.
func (m *Mount) Pose() (geom.Vec3, geom.Vec3, bool) {
	if m.body == nil {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	q := m.body.Orientation()
	fwd := m.Forward
	if _, ok := geom.Normalize(fwd); !ok {
		fwd = geom.Forward
	}
	return m.body.Position().Add(q.Rotate(m.Offset)), q.Rotate(fwd), true
}

// Beam is the result of the rig's visual trace.
type Beam struct {
	Start geom.Vec3
	End   geom.Vec3
	Hit   bool
	Body  physics.BodyID
}

// MuzzleAim confirms hits with a ray along the muzzle's own forward axis.
// It is stricter than RaycastPerception: the ray direction is where the rig
// points, not the direction toward the target, and no layers are ignored.
type MuzzleAim struct {
	scene  *physics.Scene
	target physics.BodyID
	muzzle Muzzle
	reach  float64
}

// NewMuzzleAim builds the resolver. A nil scene or muzzle is a configuration error.
func NewMuzzleAim(scene *physics.Scene, target physics.BodyID, muzzle Muzzle, reach float64) (*MuzzleAim, error) {
	if scene == nil {
		return nil, missing("aim scene")
	}
	if muzzle == nil {
		return nil, missing("aim muzzle")
	}
	if reach <= 0 {
		reach = DefaultAimRange
	}
	return &MuzzleAim{scene: scene, target: target, muzzle: muzzle, reach: reach}, nil
}

// Trace is the per-step visual trace: where the beam currently ends.
func (a *MuzzleAim) Trace() Beam {
	origin, fwd, ok := a.muzzle.Pose()
	if !ok {
		return Beam{}
	}
	if hit, ok := a.scene.Raycast(origin, fwd, a.reach, physics.AllLayers); ok {
		return Beam{Start: origin, End: hit.Point, Hit: true, Body: hit.Body}
	}
	dir, _ := geom.Normalize(fwd)
	return Beam{Start: origin, End: origin.Add(dir.Mul(a.reach))}
}

// PointingAtTarget reports whether the first body on the muzzle ray is the target.
func (a *MuzzleAim) PointingAtTarget() bool {
	if !a.scene.Alive(a.target) {
		return false
	}
	b := a.Trace()
	return b.Hit && b.Body == a.target
}
