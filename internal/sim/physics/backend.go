// Package physics owns every physics body in the world. The simulation talks
// to a physics engine only through Backend; Bridge is the single writer of
// physics results back into the entity store.
package physics

import "errors"

var (
	ErrBodyLimit = errors.New("physics: body limit reached")
	ErrBadShape  = errors.New("physics: invalid body shape")
)

type BodyID uint32

type Vec3 struct {
	X, Y, Z float32
}

type BodyKind uint8

const (
	Dynamic BodyKind = iota
	Kinematic
	Static
)

type Shape uint8

const (
	Capsule Shape = iota
	Box
	Sphere
	Cylinder
)

// BodySpec describes a body to create. Round shapes use Radius and
// HalfHeight; boxes use HalfExtents. UserData is echoed back in contacts.
type BodySpec struct {
	Kind        BodyKind
	Shape       Shape
	Position    Vec3
	Rotation    float32
	Radius      float32
	HalfHeight  float32
	HalfExtents Vec3
	Mass        float32
	UserData    uint32
}

// Contact is reported once when two bodies start touching.
type Contact struct {
	A, B   uint32
	Point  Vec3
	Normal Vec3
	Depth  float32
}

// Backend is the capability surface of a physics engine.
type Backend interface {
	CreateBody(spec BodySpec) (BodyID, error)
	DestroyBody(id BodyID)
	SetPosition(id BodyID, p Vec3)
	SetVelocity(id BodyID, v Vec3)
	MoveKinematic(id BodyID, target Vec3, dt float32)
	Position(id BodyID) (Vec3, bool)
	Step(dt float32)
	SetContactListener(fn func(Contact))
	BodyCount() int
}
