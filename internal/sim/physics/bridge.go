package physics

import (
	"io"
	"log"

	"mmoarena.ai/internal/sim/ecs"
)

// HeightFunc returns terrain elevation at a ground-plane position.
type HeightFunc func(x, z float32) float32

// Bridge translates between the entity store and a Backend. It is the only
// code that creates, destroys or steps bodies, and the only writer of
// Transform from physics results.
//
// Movement is ground-locked: after every step each moving body is snapped to
// the terrain height and its vertical velocity is dropped.
type Bridge struct {
	backend Backend
	height  HeightFunc
	logger  *log.Logger

	bodies    map[ecs.NetworkID]BodyID
	offsets   map[ecs.NetworkID]float32
	contacts  []Contact
	onContact func(Contact)

	createFailures int
}

func NewBridge(backend Backend, height HeightFunc, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if height == nil {
		height = func(float32, float32) float32 { return 0 }
	}
	b := &Bridge{
		backend: backend,
		height:  height,
		logger:  logger,
		bodies:  map[ecs.NetworkID]BodyID{},
		offsets: map[ecs.NetworkID]float32{},
	}
	backend.SetContactListener(func(c Contact) { b.contacts = append(b.contacts, c) })
	return b
}

// OnContact registers the gameplay hook for contact-add events. Contacts are
// delivered after the step's writeback, never during it.
func (b *Bridge) OnContact(fn func(Contact)) { b.onContact = fn }

var bodySig = ecs.Signature(ecs.CTransform, ecs.CCollider, ecs.CRigidBody)

// SyncNewBodies creates a body for every entity carrying a collider and a
// rigid body but no physics body yet. A failed creation is logged and the
// entity is tagged so it keeps living without a body.
func (b *Bridge) SyncNewBodies(s *ecs.Store) int {
	created := 0
	s.EachExcept(bodySig, ecs.Signature(ecs.CPhysicsBody, ecs.TagNoBody), func(e ecs.Entity) {
		id := s.NetID(e)
		tr := s.Transform.MustGet(e)
		col := s.Collider.MustGet(e)
		rb := s.RigidBody.MustGet(e)

		spec := specFor(tr, col, rb, uint32(id))
		bid, err := b.backend.CreateBody(spec)
		if err != nil {
			b.createFailures++
			b.logger.Printf("physics: create body for entity %d: %v", id, err)
			s.Tag(e, ecs.TagNoBody)
			return
		}
		b.bodies[id] = bid
		b.offsets[id] = spec.Position.Y - tr.Y
		s.Body.Set(e, ecs.PhysicsBody{ID: uint32(bid)})
		created++
	})
	return created
}

func specFor(tr *ecs.Transform, col *ecs.Collider, rb *ecs.RigidBody, user uint32) BodySpec {
	spec := BodySpec{
		Kind:       BodyKind(rb.Kind),
		Position:   Vec3{X: tr.X, Y: tr.Y, Z: tr.Z},
		Rotation:   tr.Rotation,
		Radius:     col.Radius,
		HalfHeight: col.HalfHeight,
		Mass:       rb.Mass,
		UserData:   user,
	}
	switch col.Shape {
	case ecs.ShapeBox:
		spec.Shape = Box
		spec.HalfExtents = Vec3{X: col.HalfX, Y: col.HalfY, Z: col.HalfZ}
		spec.Position.Y += col.HalfY
	case ecs.ShapeSphere:
		spec.Shape = Sphere
		spec.Position.Y += col.Radius
	case ecs.ShapeCylinder:
		spec.Shape = Cylinder
		spec.Position.Y += col.HalfHeight
	default:
		spec.Shape = Capsule
		spec.Position.Y += col.HalfHeight + col.Radius
	}
	return spec
}

// Step runs one physics tick: pending teleports are applied first, entity
// velocities are pushed into dynamic bodies, kinematic bodies are moved, the
// backend is stepped once and positions are written back ground-locked.
func (b *Bridge) Step(s *ecs.Store, dt float32) {
	s.Each(ecs.Signature(ecs.CTransform, ecs.CPhysicsBody, ecs.CRigidBody), func(e ecs.Entity) {
		id := s.NetID(e)
		bid, ok := b.bodies[id]
		if !ok {
			return
		}
		tr := s.Transform.MustGet(e)
		rb := s.RigidBody.MustGet(e)
		if s.HasBit(e, ecs.TagNeedsTeleport) {
			b.backend.SetPosition(bid, Vec3{X: tr.X, Y: tr.Y + b.offsets[id], Z: tr.Z})
			b.backend.SetVelocity(bid, Vec3{})
			s.Untag(e, ecs.TagNeedsTeleport)
		}
		var v ecs.Velocity
		if vel, ok := s.Velocity.Get(e); ok {
			v = *vel
		}
		switch BodyKind(rb.Kind) {
		case Dynamic:
			b.backend.SetVelocity(bid, Vec3{X: v.X, Z: v.Z})
		case Kinematic:
			b.backend.MoveKinematic(bid, Vec3{X: tr.X + v.X*dt, Y: tr.Y + b.offsets[id], Z: tr.Z + v.Z*dt}, dt)
		}
	})

	b.backend.Step(dt)

	s.Each(ecs.Signature(ecs.CTransform, ecs.CPhysicsBody, ecs.CRigidBody), func(e ecs.Entity) {
		rb := s.RigidBody.MustGet(e)
		if BodyKind(rb.Kind) == Static {
			return
		}
		id := s.NetID(e)
		bid, ok := b.bodies[id]
		if !ok {
			return
		}
		p, ok := b.backend.Position(bid)
		if !ok {
			return
		}
		tr := s.Transform.MustGet(e)
		tr.X, tr.Z = p.X, p.Z
		tr.Y = b.height(p.X, p.Z)
		if vel, ok := s.Velocity.Get(e); ok {
			vel.Y = 0
		}
		if BodyKind(rb.Kind) == Dynamic {
			b.backend.SetPosition(bid, Vec3{X: tr.X, Y: tr.Y + b.offsets[id], Z: tr.Z})
		}
	})

	pending := b.contacts
	b.contacts = nil
	if b.onContact != nil {
		for _, c := range pending {
			b.onContact(c)
		}
	}
}

// Destroy releases the body owned by id. It must run before the entity is
// destroyed in the store.
func (b *Bridge) Destroy(id ecs.NetworkID) bool {
	bid, ok := b.bodies[id]
	if !ok {
		return false
	}
	b.backend.DestroyBody(bid)
	delete(b.bodies, id)
	delete(b.offsets, id)
	return true
}

func (b *Bridge) Has(id ecs.NetworkID) bool {
	_, ok := b.bodies[id]
	return ok
}

// BodyCount is the number of bodies the bridge owns.
func (b *Bridge) BodyCount() int { return len(b.bodies) }

// CreateFailures counts bodies the backend refused.
func (b *Bridge) CreateFailures() int { return b.createFailures }
