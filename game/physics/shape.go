package physics

import (
	"math"

	"github.com/kasuganosora/sentrysim/game/geom"
)

// Shape is a collision volume that can be hit by a ray.
type Shape interface {
	// intersect returns the entry distance along the unit direction dir.
	// Rays that start inside the volume do not hit it.
	intersect(origin, dir geom.Vec3, maxDist float64) (float64, bool)
	// centered returns a copy of the shape moved so that its center is c.
	centered(c geom.Vec3) Shape
	Center() geom.Vec3
}

// Box is an axis-aligned box.
type Box struct {
	Min, Max geom.Vec3
}

// BoxAt builds a box of the given full size centered on c.
func BoxAt(c, size geom.Vec3) Box {
	h := size.Mul(0.5)
	return Box{Min: c.Sub(h), Max: c.Add(h)}
}

func (b Box) Center() geom.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

func (b Box) centered(c geom.Vec3) Shape {
	return BoxAt(c, b.Max.Sub(b.Min))
}

// intersect is the slab test, extended to three axes.
func (b Box) intersect(origin, dir geom.Vec3, maxDist float64) (float64, bool) {
	tMin := math.Inf(-1)
	tMax := math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / dir[i]
		t1 := (b.Min[i] - origin[i]) * inv
		t2 := (b.Max[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if tMin < 0 || tMin > maxDist {
		return 0, false
	}
	return tMin, true
}

// Sphere is a ball volume, used for agents and the player.
type Sphere struct {
	C      geom.Vec3
	Radius float64
}

func (s Sphere) Center() geom.Vec3 { return s.C }

func (s Sphere) centered(c geom.Vec3) Shape {
	return Sphere{C: c, Radius: s.Radius}
}

func (s Sphere) intersect(origin, dir geom.Vec3, maxDist float64) (float64, bool) {
	oc := origin.Sub(s.C)
	c := oc.Dot(oc) - s.Radius*s.Radius
	if c < 0 {
		return 0, false
	}
	b := oc.Dot(dir)
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 || t > maxDist {
		return 0, false
	}
	return t, true
}
