// Package geom holds the 3D math shared by the simulation: points, directions
// and body orientation. Orientation follows a +Z forward / +Y up convention.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a point or direction in world space.
type Vec3 = mgl64.Vec3

// Quat is a unit rotation quaternion.
type Quat = mgl64.Quat

var (
	Up      = Vec3{0, 1, 0}
	Right   = Vec3{1, 0, 0}
	Forward = Vec3{0, 0, 1}
)

// V builds a Vec3.
func V(x, y, z float64) Vec3 { return Vec3{x, y, z} }

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return b.Sub(a).Len()
}

// Normalize returns the unit vector of v. ok is false for a zero-length vector,
// in which case the zero vector is returned instead of NaNs.
func Normalize(v Vec3) (Vec3, bool) {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}, false
	}
	return v.Mul(1 / l), true
}

// Flatten zeroes the vertical component.
func Flatten(v Vec3) Vec3 {
	return Vec3{v[0], 0, v[2]}
}

// Identity is the rotation that faces +Z.
func Identity() Quat { return mgl64.QuatIdent() }

// LookRotation returns the rotation whose forward axis points along dir with no
// roll. A zero direction yields the identity.
func LookRotation(dir Vec3) Quat {
	d, ok := Normalize(dir)
	if !ok {
		return mgl64.QuatIdent()
	}
	yaw := math.Atan2(d[0], d[2])
	pitch := -math.Asin(clamp(d[1], -1, 1))
	return mgl64.QuatRotate(yaw, Up).Mul(mgl64.QuatRotate(pitch, Right)).Normalize()
}

// Yaw returns a rotation of deg degrees about the vertical axis.
func Yaw(deg float64) Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(deg), Up)
}

// Slerp interpolates along the shortest arc from a to b. t is clamped to [0,1].
func Slerp(a, b Quat, t float64) Quat {
	t = clamp(t, 0, 1)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// ForwardOf returns the world forward axis of rotation q.
func ForwardOf(q Quat) Vec3 {
	return q.Rotate(Forward)
}

// Heading returns the yaw of q in degrees, (-180, 180], 0 facing +Z.
func Heading(q Quat) float64 {
	f := ForwardOf(q)
	return mgl64.RadToDeg(math.Atan2(f[0], f[2]))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
