package systems

import (
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/mathx"
)

// moveDeadZone ignores stick noise below this input length.
const moveDeadZone = 0.1

// Movement turns player input into velocity and integrates every entity that
// has no physics body; bodies are advanced by the physics bridge.
func Movement(env *Env) {
	s := env.Store
	s.Each(ecs.Signature(ecs.TagPlayer, ecs.CTransform, ecs.CVelocity, ecs.CInput, ecs.CHealth, ecs.CInfo), func(e ecs.Entity) {
		if !s.Health.MustGet(e).Alive() {
			return
		}
		vel := s.Velocity.MustGet(e)
		in := s.Input.MustGet(e)
		speed := s.Info.MustGet(e).Speed

		mx, mz := in.MoveX, in.MoveY
		l := mathx.Len2(mx, mz)
		if l > moveDeadZone {
			if l > 1 {
				mx, mz = mx/l, mz/l
			}
			vel.X, vel.Z = mx*speed, mz*speed
		} else {
			vel.X, vel.Z = 0, 0
		}
		integrate(env, e)
	})

	half := env.MonsterSize / 2
	s.Each(npcSig, func(e ecs.Entity) {
		if !s.Health.MustGet(e).Alive() {
			return
		}
		if integrate(env, e) {
			tr := s.Transform.MustGet(e)
			tr.X = mathx.Clamp(tr.X, half, env.WorldWidth-half)
			tr.Z = mathx.Clamp(tr.Z, half, env.WorldHeight-half)
		}
	})

	s.EachExcept(townAISig, ecs.Signature(ecs.TagNPC), func(e ecs.Entity) {
		integrate(env, e)
	})
}

// integrate faces the entity along its velocity and, when no body owns it,
// advances the transform directly. It reports whether it moved the entity.
func integrate(env *Env, e ecs.Entity) bool {
	s := env.Store
	tr := s.Transform.MustGet(e)
	vel := s.Velocity.MustGet(e)
	if vel.X != 0 || vel.Z != 0 {
		tr.Rotation = mathx.Yaw(vel.X, vel.Z)
	}
	if s.Has(e, bodySig) {
		return false
	}
	tr.X += vel.X * env.DT
	tr.Z += vel.Z * env.DT
	if env.Height != nil {
		tr.Y = env.Height(tr.X, tr.Z)
	}
	return true
}
