// Package physics is the collision world the combat layer raycasts against:
// static obstacles plus the moving bodies of agents and the player.
package physics

import (
	"sync"

	"github.com/kasuganosora/sentrysim/game/geom"
)

// BodyID identifies a body within one Scene. Zero is never assigned.
type BodyID int64

// Layer is a single collision layer bit.
type Layer uint32

const (
	LayerDefault Layer = 1 << iota
	LayerObstacle
	LayerAgent
	LayerPlayer
	LayerGlass
)

// Mask is a set of layers.
type Mask uint32

// AllLayers matches every layer.
const AllLayers Mask = ^Mask(0)

// Has reports whether l is in the mask.
func (m Mask) Has(l Layer) bool { return uint32(m)&uint32(l) != 0 }

// Without returns the mask with the given layers removed.
func (m Mask) Without(ignore Mask) Mask { return m &^ ignore }

// ParseLayer maps a layer name from arena definitions to its bit.
func ParseLayer(name string) (Layer, bool) {
	switch name {
	case "default", "":
		return LayerDefault, true
	case "obstacle":
		return LayerObstacle, true
	case "agent":
		return LayerAgent, true
	case "player":
		return LayerPlayer, true
	case "glass":
		return LayerGlass, true
	}
	return 0, false
}

// Body is one collider in the scene.
type Body struct {
	ID      BodyID
	Name    string
	Layer   Layer
	Shape   Shape
	Enabled bool
}

// Hit describes the first intersection of a ray.
type Hit struct {
	Body     BodyID
	Point    geom.Vec3
	Distance float64
}

// Scene holds every collider of one arena.
type Scene struct {
	mu     sync.RWMutex
	bodies map[BodyID]*Body
	order  []BodyID
	nextID BodyID
}

// NewScene creates an empty Scene.
func NewScene() *Scene {
	return &Scene{bodies: make(map[BodyID]*Body)}
}

// Add registers an enabled body and returns its ID.
func (s *Scene) Add(name string, layer Layer, shape Shape) BodyID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.bodies[id] = &Body{ID: id, Name: name, Layer: layer, Shape: shape, Enabled: true}
	s.order = append(s.order, id)
	return id
}

// Remove deletes a body. Unknown IDs are ignored.
func (s *Scene) Remove(id BodyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bodies[id]; !ok {
		return
	}
	delete(s.bodies, id)
	for i, b := range s.order {
		if b == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetEnabled toggles whether rays can hit the body.
func (s *Scene) SetEnabled(id BodyID, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bodies[id]; ok {
		b.Enabled = enabled
	}
}

// MoveTo re-centers a body on c.
func (s *Scene) MoveTo(id BodyID, c geom.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bodies[id]; ok {
		b.Shape = b.Shape.centered(c)
	}
}

// Alive reports whether the body exists and is enabled.
func (s *Scene) Alive(id BodyID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[id]
	return ok && b.Enabled
}

// Get returns a copy of the body.
func (s *Scene) Get(id BodyID) (Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Raycast returns the nearest enabled body on the given layers hit by the ray
// from origin along dir within maxDist. dir need not be normalized; a zero
// direction never hits.
func (s *Scene) Raycast(origin, dir geom.Vec3, maxDist float64, mask Mask) (Hit, bool) {
	d, ok := geom.Normalize(dir)
	if !ok || maxDist <= 0 {
		return Hit{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Hit
	found := false
	for _, id := range s.order {
		b := s.bodies[id]
		if !b.Enabled || !mask.Has(b.Layer) {
			continue
		}
		t, hit := b.Shape.intersect(origin, d, maxDist)
		if !hit {
			continue
		}
		if !found || t < best.Distance {
			best = Hit{Body: id, Point: origin.Add(d.Mul(t)), Distance: t}
			found = true
		}
	}
	return best, found
}
