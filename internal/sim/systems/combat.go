package systems

import (
	"math"

	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/mathx"
)

const (
	minHitDist    = 0.001
	respawnMargin = 100
)

// CombatEvent reports one landed hit. Killed is set when the hit took the
// target to zero health.
type CombatEvent struct {
	Attacker ecs.NetworkID
	Target   ecs.NetworkID
	Damage   float32
	TargetX  float32
	TargetZ  float32
	Killed   bool
}

// InCone reports whether a target at offset (dx, dz) from the attacker lies
// within rangeLimit and inside the cone around (aimX, aimZ) whose half angle
// has cosine cosHalf. The aim must already be unit length. The boundary is
// inclusive.
func InCone(dx, dz, rangeLimit, aimX, aimZ, cosHalf float32) bool {
	dist := mathx.Len2(dx, dz)
	if dist > rangeLimit || dist < minHitDist {
		return false
	}
	return ConeDot(dx, dz, dist, aimX, aimZ) >= cosHalf
}

// ConeDot is the cosine between the offset and the aim as InCone computes it.
func ConeDot(dx, dz, dist, aimX, aimZ float32) float32 {
	// Explicit rounding keeps the result identical wherever it is inlined.
	a := float32((dx / dist) * aimX)
	b := float32((dz / dist) * aimZ)
	return a + b
}

// Combat decays cooldowns, resolves player cone attacks and NPC melee, and
// applies damage. NPCs that die respawn at a random position; players stay
// dead at zero health.
func Combat(env *Env) []CombatEvent {
	s := env.Store
	var events []CombatEvent

	s.Each(combatSig, func(e ecs.Entity) {
		if !s.Health.MustGet(e).Alive() {
			return
		}
		c := s.Combat.MustGet(e)
		if c.CurrentCooldown > 0 {
			c.CurrentCooldown = max(0, c.CurrentCooldown-env.DT)
		}
		c.IsAttacking = false
	})

	npcs := s.Collect(ecs.Signature(ecs.TagNPC, ecs.CTransform, ecs.CHealth))

	s.Each(attacksSig, func(e ecs.Entity) {
		c := s.Combat.MustGet(e)
		in := s.Input.MustGet(e)
		if !s.Health.MustGet(e).Alive() || !in.Attacking || c.CurrentCooldown != 0 {
			return
		}
		c.IsAttacking = true
		c.CurrentCooldown = c.AttackCooldown
		// A zero aim still swings; the cone has no direction to hit with.
		aimX, aimZ, ok := mathx.Normalize(in.AimX, in.AimY)
		if !ok {
			return
		}
		s.AttackDirection.Set(e, ecs.AttackDirection{X: aimX, Y: aimZ})

		cosHalf := float32(math.Cos(float64(c.ConeAngle)))
		tr := s.Transform.MustGet(e)
		attacker := s.NetID(e)
		for _, n := range npcs {
			if !s.Health.MustGet(n).Alive() {
				continue
			}
			nt := s.Transform.MustGet(n)
			if !InCone(nt.X-tr.X, nt.Z-tr.Z, c.AttackRange, aimX, aimZ, cosHalf) {
				continue
			}
			events = append(events, damage(env, attacker, n, c.Damage))
		}
	})

	players := s.Collect(playerSig)
	s.Each(npcAttSig, func(e ecs.Entity) {
		c := s.Combat.MustGet(e)
		ai := s.AI.MustGet(e)
		if !s.Health.MustGet(e).Alive() || ai.Target == 0 || c.CurrentCooldown != 0 {
			return
		}
		tr := s.Transform.MustGet(e)
		var target ecs.Entity
		found := false
		nearest := c.AttackRange
		for _, p := range players {
			if !s.Health.MustGet(p).Alive() {
				continue
			}
			pt := s.Transform.MustGet(p)
			if d := mathx.Dist(tr.X, tr.Z, pt.X, pt.Z); d < nearest {
				nearest = d
				target = p
				found = true
			}
		}
		if !found {
			return
		}
		c.IsAttacking = true
		c.CurrentCooldown = c.AttackCooldown
		events = append(events, damage(env, s.NetID(e), target, c.Damage))
	})

	return events
}

func damage(env *Env, attacker ecs.NetworkID, target ecs.Entity, amount float32) CombatEvent {
	s := env.Store
	h := s.Health.MustGet(target)
	tr := s.Transform.MustGet(target)
	ev := CombatEvent{
		Attacker: attacker,
		Target:   s.NetID(target),
		Damage:   amount,
		TargetX:  tr.X,
		TargetZ:  tr.Z,
	}
	h.Current = max(0, h.Current-amount)
	if h.Alive() {
		return ev
	}
	ev.Killed = true
	if s.HasBit(target, ecs.TagNPC) {
		respawn(env, target)
	}
	return ev
}

func respawn(env *Env, e ecs.Entity) {
	s := env.Store
	h := s.Health.MustGet(e)
	h.Current = h.Max

	tr := s.Transform.MustGet(e)
	tr.X = env.Rand.Range(respawnMargin, env.WorldWidth-respawnMargin)
	tr.Z = env.Rand.Range(respawnMargin, env.WorldHeight-respawnMargin)
	tr.Y = env.height(tr.X, tr.Z)

	if v, ok := s.Velocity.Get(e); ok {
		*v = ecs.Velocity{}
	}
	if ai, ok := s.AI.Get(e); ok {
		ai.Target = 0
		ai.Mode = ecs.AIIdle
	}
	s.Tag(e, ecs.TagNeedsTeleport)
}
