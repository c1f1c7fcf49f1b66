// Package physicstest provides a scripted physics.Backend for tests.
package physicstest

import (
	"errors"

	"mmoarena.ai/internal/sim/physics"
)

var ErrScripted = errors.New("physicstest: scripted failure")

type FakeBody struct {
	Spec physics.BodySpec
	Pos  physics.Vec3
	Vel  physics.Vec3
}

// Fake integrates dynamic bodies by velocity and nothing else. Contacts
// queued with Emit are delivered on the next Step.
type Fake struct {
	Bodies    map[physics.BodyID]*FakeBody
	Created   []physics.BodySpec
	Destroyed []physics.BodyID
	Steps     int

	// FailCreate, when set, decides whether a CreateBody call fails.
	FailCreate func(spec physics.BodySpec) bool

	next     physics.BodyID
	queued   []physics.Contact
	listener func(physics.Contact)
}

func NewFake() *Fake {
	return &Fake{Bodies: map[physics.BodyID]*FakeBody{}}
}

func (f *Fake) CreateBody(spec physics.BodySpec) (physics.BodyID, error) {
	if f.FailCreate != nil && f.FailCreate(spec) {
		return 0, ErrScripted
	}
	f.next++
	f.Bodies[f.next] = &FakeBody{Spec: spec, Pos: spec.Position}
	f.Created = append(f.Created, spec)
	return f.next, nil
}

func (f *Fake) DestroyBody(id physics.BodyID) {
	if _, ok := f.Bodies[id]; ok {
		delete(f.Bodies, id)
		f.Destroyed = append(f.Destroyed, id)
	}
}

func (f *Fake) SetPosition(id physics.BodyID, p physics.Vec3) {
	if b := f.Bodies[id]; b != nil {
		b.Pos = p
	}
}

func (f *Fake) SetVelocity(id physics.BodyID, v physics.Vec3) {
	if b := f.Bodies[id]; b != nil {
		b.Vel = v
	}
}

func (f *Fake) MoveKinematic(id physics.BodyID, target physics.Vec3, dt float32) {
	if b := f.Bodies[id]; b != nil {
		b.Pos = target
	}
}

func (f *Fake) Position(id physics.BodyID) (physics.Vec3, bool) {
	b := f.Bodies[id]
	if b == nil {
		return physics.Vec3{}, false
	}
	return b.Pos, true
}

func (f *Fake) Step(dt float32) {
	f.Steps++
	for _, b := range f.Bodies {
		if b.Spec.Kind != physics.Dynamic {
			continue
		}
		b.Pos.X += b.Vel.X * dt
		b.Pos.Y += b.Vel.Y * dt
		b.Pos.Z += b.Vel.Z * dt
	}
	q := f.queued
	f.queued = nil
	if f.listener != nil {
		for _, c := range q {
			f.listener(c)
		}
	}
}

func (f *Fake) SetContactListener(fn func(physics.Contact)) { f.listener = fn }

func (f *Fake) BodyCount() int { return len(f.Bodies) }

// Emit queues a contact for the next Step.
func (f *Fake) Emit(c physics.Contact) { f.queued = append(f.queued, c) }
