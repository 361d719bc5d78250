package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestNormalize_Zero(t *testing.T) {
	v, ok := Normalize(Vec3{})
	assert.False(t, ok)
	assert.Equal(t, Vec3{}, v)
}

func TestLookRotation_Axes(t *testing.T) {
	cases := []Vec3{
		V(0, 0, 1),
		V(1, 0, 0),
		V(-1, 0, 0),
		V(0, 0, -1),
		V(3, 4, 5),
	}
	for _, dir := range cases {
		want, _ := Normalize(dir)
		got := ForwardOf(LookRotation(dir))
		assert.InDelta(t, want[0], got[0], eps, "dir %v", dir)
		assert.InDelta(t, want[1], got[1], eps, "dir %v", dir)
		assert.InDelta(t, want[2], got[2], eps, "dir %v", dir)
	}
}

func TestLookRotation_ZeroIsIdentity(t *testing.T) {
	assert.Equal(t, Identity(), LookRotation(Vec3{}))
}

func TestHeading(t *testing.T) {
	assert.InDelta(t, 0, Heading(Identity()), eps)
	assert.InDelta(t, 90, Heading(LookRotation(V(1, 0, 0))), eps)
	assert.InDelta(t, -90, Heading(Yaw(-90)), eps)
}

func TestSlerp_Endpoints(t *testing.T) {
	a := Identity()
	b := Yaw(90)
	assert.InDelta(t, 0, Heading(Slerp(a, b, 0)), 1e-6)
	assert.InDelta(t, 90, Heading(Slerp(a, b, 1)), 1e-6)
	assert.InDelta(t, 45, Heading(Slerp(a, b, 0.5)), 1e-6)
	// t is clamped
	assert.InDelta(t, 90, Heading(Slerp(a, b, 7)), 1e-6)
}

func TestSlerp_ShortestArc(t *testing.T) {
	a := Yaw(170)
	b := Yaw(-170)
	mid := Slerp(a, b, 0.5)
	assert.InDelta(t, 180, abs(Heading(mid)), 1e-6)
}

func TestFlattenAndDistance(t *testing.T) {
	assert.Equal(t, V(1, 0, 3), Flatten(V(1, 2, 3)))
	assert.InDelta(t, 5, Distance(V(0, 0, 0), V(3, 0, 4)), eps)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
