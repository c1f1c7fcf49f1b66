package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/ecs"
)

// States projects every replicated entity to its wire form, in ascending
// slot order.
func (w *World) States() []protocol.NetEntityState {
	s := w.store
	out := make([]protocol.NetEntityState, 0, s.Len())
	s.Each(ecs.Signature(ecs.CTransform, ecs.CInfo, ecs.CHealth), func(e ecs.Entity) {
		out = append(out, w.netState(e))
	})
	return out
}

// State returns the wire projection of one entity.
func (w *World) State(id ecs.NetworkID) (protocol.NetEntityState, bool) {
	e, ok := w.store.Lookup(id)
	if !ok || !w.store.Has(e, ecs.Signature(ecs.CTransform, ecs.CInfo, ecs.CHealth)) {
		return protocol.NetEntityState{}, false
	}
	return w.netState(e), true
}

func (w *World) netState(e ecs.Entity) protocol.NetEntityState {
	s := w.store
	tr := s.Transform.MustGet(e)
	info := s.Info.MustGet(e)
	h := s.Health.MustGet(e)

	st := protocol.NetEntityState{
		ID:         uint32(s.NetID(e)),
		Type:       protocol.EntityType(info.Type),
		X:          tr.X,
		Y:          tr.Y,
		Z:          tr.Z,
		Rotation:   tr.Rotation,
		Health:     h.Current,
		MaxHealth:  h.Max,
		Color:      info.Color,
		ModelName:  info.Model,
		TargetSize: info.TargetSize,
		Animation:  info.Animation,
		EffectType: info.Effect,
		Speed:      info.Speed,
		Scale:      1,
	}
	switch st.Type {
	case protocol.EntityPlayer:
		st.PlayerClass = info.Subtype
		st.ShowsReticle = info.ShowsReticle
	case protocol.EntityNPC, protocol.EntityTownNPC:
		st.NPCType = info.Subtype
	case protocol.EntityBuilding:
		st.BuildingType = info.Subtype
	case protocol.EntityEnvironment:
		st.EnvironmentType = info.Subtype
	}
	if n, ok := s.Name.Get(e); ok {
		st.Name = n.Value
	}
	if sc, ok := s.Scale.Get(e); ok {
		st.Scale = sc.X
	}
	if v, ok := s.Velocity.Get(e); ok {
		st.VX, st.VY = v.X, v.Z
	}
	if c, ok := s.Combat.Get(e); ok {
		st.IsAttacking = c.IsAttacking
		st.AttackRange = c.AttackRange
		st.AttackCooldown = c.CurrentCooldown
		st.ConeAngle = c.ConeAngle
	}
	if d, ok := s.AttackDirection.Get(e); ok {
		st.AttackDirX, st.AttackDirY = d.X, d.Y
	}
	if ai, ok := s.AI.Get(e); ok {
		st.TargetID = uint32(ai.Target)
	}
	return st
}

// StateDigest hashes the simulation-relevant state of every entity in slot
// order together with the tick. Presentation fields are left out.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte
	s := w.store

	digestU64(h, &tmp, w.tick.Load())
	digestU64(h, &tmp, uint64(s.Len()))
	s.Each(ecs.Signature(ecs.CTransform), func(e ecs.Entity) {
		digestU64(h, &tmp, uint64(s.NetID(e)))
		tr := s.Transform.MustGet(e)
		digestF32(h, &tmp, tr.X, tr.Y, tr.Z, tr.Rotation)
		if v, ok := s.Velocity.Get(e); ok {
			digestF32(h, &tmp, v.X, v.Y, v.Z)
		}
		if hp, ok := s.Health.Get(e); ok {
			digestF32(h, &tmp, hp.Current, hp.Max)
		}
		if c, ok := s.Combat.Get(e); ok {
			digestF32(h, &tmp, c.CurrentCooldown)
		}
		if ai, ok := s.AI.Get(e); ok {
			digestU64(h, &tmp, uint64(ai.Target)<<8|uint64(ai.Mode))
		}
		if t, ok := s.TownAI.Get(e); ok {
			digestU64(h, &tmp, uint64(t.Mode))
			digestF32(h, &tmp, t.TargetX, t.TargetZ, t.IdleTimer, t.MoveTimer)
		}
	})
	return hex.EncodeToString(h.Sum(nil))
}

func digestU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestF32(h hash.Hash, tmp *[8]byte, vs ...float32) {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(tmp[:4], math.Float32bits(v))
		h.Write(tmp[:4])
	}
}
