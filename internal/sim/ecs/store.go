package ecs

import (
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
)

// Entity is a generation-checked handle. Index addresses the slot; a handle
// whose Generation no longer matches the slot refers to a destroyed entity.
type Entity struct {
	Index      uint32
	Generation uint32
}

// NetworkID is the only identifier sent over the wire. Zero is never issued.
type NetworkID uint32

type slot struct {
	generation uint32
	alive      bool
	sig        mask.Mask
	net        NetworkID
}

// Store owns every entity and its components. It is not safe for concurrent
// use; the simulation goroutine is its only caller.
type Store struct {
	slots []slot
	free  []uint32
	byNet map[NetworkID]Entity

	nextNet atomic.Uint32
	arenas  []arena

	Transform       *Arena[Transform]
	Velocity        *Arena[Velocity]
	Health          *Arena[Health]
	Combat          *Arena[Combat]
	Input           *Arena[InputState]
	AttackDirection *Arena[AttackDirection]
	Info            *Arena[EntityInfo]
	Name            *Arena[Name]
	Scale           *Arena[Scale]
	AI              *Arena[AIState]
	TownAI          *Arena[TownNPCAI]
	Collider        *Arena[Collider]
	RigidBody       *Arena[RigidBody]
	Body            *Arena[PhysicsBody]
}

func NewStore() *Store {
	s := &Store{byNet: map[NetworkID]Entity{}}
	s.Transform = newArena[Transform](s, CTransform)
	s.Velocity = newArena[Velocity](s, CVelocity)
	s.Health = newArena[Health](s, CHealth)
	s.Combat = newArena[Combat](s, CCombat)
	s.Input = newArena[InputState](s, CInput)
	s.AttackDirection = newArena[AttackDirection](s, CAttackDirection)
	s.Info = newArena[EntityInfo](s, CInfo)
	s.Name = newArena[Name](s, CName)
	s.Scale = newArena[Scale](s, CScale)
	s.AI = newArena[AIState](s, CAI)
	s.TownAI = newArena[TownNPCAI](s, CTownAI)
	s.Collider = newArena[Collider](s, CCollider)
	s.RigidBody = newArena[RigidBody](s, CRigidBody)
	s.Body = newArena[PhysicsBody](s, CPhysicsBody)
	return s
}

// Create allocates an entity and assigns it a fresh NetworkID. Freed slots
// are reused with a bumped generation; NetworkIDs are never reused.
func (s *Store) Create() Entity {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
		for _, a := range s.arenas {
			a.grow(len(s.slots))
		}
	}
	sl := &s.slots[idx]
	sl.alive = true
	sl.sig = mask.Mask{}
	sl.net = NetworkID(s.nextNet.Add(1))
	e := Entity{Index: idx, Generation: sl.generation}
	s.byNet[sl.net] = e
	return e
}

// Destroy clears every component and retires the handle. Destroying a stale
// handle is a no-op.
func (s *Store) Destroy(e Entity) bool {
	if !s.Alive(e) {
		return false
	}
	sl := &s.slots[e.Index]
	for _, a := range s.arenas {
		a.reset(e.Index)
	}
	delete(s.byNet, sl.net)
	sl.alive = false
	sl.sig = mask.Mask{}
	sl.net = 0
	sl.generation++
	s.free = append(s.free, e.Index)
	return true
}

func (s *Store) Alive(e Entity) bool {
	return int(e.Index) < len(s.slots) && s.slots[e.Index].alive && s.slots[e.Index].generation == e.Generation
}

// NetID returns the wire id of a live entity, or 0.
func (s *Store) NetID(e Entity) NetworkID {
	if !s.Alive(e) {
		return 0
	}
	return s.slots[e.Index].net
}

// Lookup resolves a wire id to its live entity.
func (s *Store) Lookup(id NetworkID) (Entity, bool) {
	e, ok := s.byNet[id]
	return e, ok
}

// Len is the number of live entities.
func (s *Store) Len() int { return len(s.byNet) }

// PeekNextNetworkID reports the id the next Create will assign.
func (s *Store) PeekNextNetworkID() NetworkID { return NetworkID(s.nextNet.Load() + 1) }

// Tag and Untag set marker bits that carry no data.
func (s *Store) Tag(e Entity, bit uint32) {
	if s.Alive(e) {
		s.slots[e.Index].sig.Mark(bit)
	}
}

func (s *Store) Untag(e Entity, bit uint32) {
	if s.Alive(e) {
		s.slots[e.Index].sig.Unmark(bit)
	}
}

// Has reports whether e carries every bit in sig.
func (s *Store) Has(e Entity, sig mask.Mask) bool {
	if !s.Alive(e) {
		return false
	}
	return s.slots[e.Index].sig.ContainsAll(sig)
}

func (s *Store) HasBit(e Entity, bit uint32) bool {
	return s.Has(e, Signature(bit))
}

// Each calls fn for every live entity whose signature contains all of sig,
// in ascending slot order. fn must not create or destroy entities.
func (s *Store) Each(sig mask.Mask, fn func(e Entity)) {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.alive || !sl.sig.ContainsAll(sig) {
			continue
		}
		fn(Entity{Index: uint32(i), Generation: sl.generation})
	}
}

// EachExcept is Each restricted to entities carrying none of the bits in without.
func (s *Store) EachExcept(sig, without mask.Mask, fn func(e Entity)) {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.alive || !sl.sig.ContainsAll(sig) || !sl.sig.ContainsNone(without) {
			continue
		}
		fn(Entity{Index: uint32(i), Generation: sl.generation})
	}
}

// Collect returns matching entities; use it when the caller needs to create
// or destroy while walking.
func (s *Store) Collect(sig mask.Mask) []Entity {
	var out []Entity
	s.Each(sig, func(e Entity) { out = append(out, e) })
	return out
}

// Signature builds a mask from component bits.
func Signature(bits ...uint32) mask.Mask {
	var m mask.Mask
	for _, b := range bits {
		m.Mark(b)
	}
	return m
}
