package systems

import (
	"math"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/mathx"
	"mmoarena.ai/internal/sim/spatial"
)

const (
	townArriveDist   = 5
	townWalkSpeed    = 30
	townMoveTimeout  = 5
	townTimeoutIdle  = 1
	townIdleMin      = 2
	townIdleRangeSec = 3
)

// AI runs target acquisition for hostile NPCs and the wander loop for town
// NPCs. When grid is non-nil candidate players come from it.
func AI(env *Env, grid *spatial.Grid) {
	hostileAI(env, grid)
	townAI(env)
}

func hostileAI(env *Env, grid *spatial.Grid) {
	s := env.Store
	var players []ecs.Entity
	if grid == nil {
		players = s.Collect(playerSig)
	}

	s.Each(ecs.Signature(ecs.TagNPC, ecs.CTransform, ecs.CVelocity, ecs.CCombat, ecs.CAI, ecs.CHealth), func(e ecs.Entity) {
		if !s.Health.MustGet(e).Alive() {
			return
		}
		tr := s.Transform.MustGet(e)
		vel := s.Velocity.MustGet(e)
		combat := s.Combat.MustGet(e)
		ai := s.AI.MustGet(e)

		candidates := players
		if grid != nil {
			candidates = candidates[:0:0]
			for _, id := range grid.QueryRadiusKind(tr.X, tr.Z, ai.AggroRange, uint8(protocol.EntityPlayer)) {
				if pe, ok := s.Lookup(id); ok && s.Has(pe, playerSig) {
					candidates = append(candidates, pe)
				}
			}
		}

		var target ecs.Entity
		found := false
		nearest := ai.AggroRange
		for _, p := range candidates {
			if !s.Health.MustGet(p).Alive() {
				continue
			}
			pt := s.Transform.MustGet(p)
			if env.inSafeZone(pt.X, pt.Z) {
				continue
			}
			if d := mathx.Dist(tr.X, tr.Z, pt.X, pt.Z); d < nearest {
				nearest = d
				target = p
				found = true
			}
		}

		if !found {
			ai.Target = 0
			ai.Mode = ecs.AIIdle
			vel.X, vel.Z = 0, 0
			return
		}
		ai.Target = s.NetID(target)
		pt := s.Transform.MustGet(target)
		dx, dz := pt.X-tr.X, pt.Z-tr.Z
		if nearest > combat.AttackRange {
			ai.Mode = ecs.AIChasing
			vel.X = dx / nearest * ai.MonsterSpeed
			vel.Z = dz / nearest * ai.MonsterSpeed
		} else {
			ai.Mode = ecs.AIAttacking
			vel.X, vel.Z = 0, 0
		}
	})
}

func townAI(env *Env) {
	s := env.Store
	s.Each(townAISig, func(e ecs.Entity) {
		ai := s.TownAI.MustGet(e)
		tr := s.Transform.MustGet(e)
		vel := s.Velocity.MustGet(e)

		if ai.Mode == ecs.TownWalking {
			dx, dz := ai.TargetX-tr.X, ai.TargetZ-tr.Z
			dist := mathx.Len2(dx, dz)
			if dist < townArriveDist {
				ai.Mode = ecs.TownIdle
				ai.IdleTimer = townIdleMin + float32(env.Rand.Intn(townIdleRangeSec*10))/10
				vel.X, vel.Z = 0, 0
			} else {
				speed := ai.WalkSpeed
				if speed <= 0 {
					speed = townWalkSpeed
				}
				vel.X = dx / dist * speed
				vel.Z = dz / dist * speed
			}

			ai.MoveTimer -= env.DT
			if ai.Mode == ecs.TownWalking && ai.MoveTimer <= 0 {
				ai.Mode = ecs.TownIdle
				ai.IdleTimer = townTimeoutIdle
				vel.X, vel.Z = 0, 0
			}
			return
		}

		ai.IdleTimer -= env.DT
		if ai.IdleTimer > 0 {
			return
		}
		angle := float64(env.Rand.Intn(360)) * math.Pi / 180
		radius := float32(env.Rand.Intn(100)) / 100 * ai.WanderRadius
		ai.TargetX = ai.HomeX + float32(math.Cos(angle))*radius
		ai.TargetZ = ai.HomeZ + float32(math.Sin(angle))*radius
		ai.Mode = ecs.TownWalking
		ai.MoveTimer = townMoveTimeout
	})
}
