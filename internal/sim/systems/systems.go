// Package systems holds the per-tick gameplay systems. Each one is a plain
// function over the entity store and runs on the simulation goroutine.
package systems

import (
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/mathx"
)

// Env is the read-only tick context shared by every system.
type Env struct {
	Store *ecs.Store
	DT    float32

	WorldWidth  float32
	WorldHeight float32

	// Hostile NPCs never acquire a player standing inside the safe zone.
	SafeCenterX float32
	SafeCenterZ float32
	SafeRadius  float32

	MonsterSize float32

	Height func(x, z float32) float32
	Rand   *mathx.Rand
}

func (e *Env) height(x, z float32) float32 {
	if e.Height == nil {
		return 0
	}
	return e.Height(x, z)
}

func (e *Env) inSafeZone(x, z float32) bool {
	return mathx.DistSq(x, z, e.SafeCenterX, e.SafeCenterZ) < e.SafeRadius*e.SafeRadius
}

var (
	playerSig  = ecs.Signature(ecs.TagPlayer, ecs.CTransform, ecs.CHealth)
	npcSig     = ecs.Signature(ecs.TagNPC, ecs.CTransform, ecs.CVelocity, ecs.CHealth)
	townAISig  = ecs.Signature(ecs.CTownAI, ecs.CTransform, ecs.CVelocity)
	bodySig    = ecs.Signature(ecs.CPhysicsBody)
	combatSig  = ecs.Signature(ecs.CCombat, ecs.CHealth)
	attacksSig = ecs.Signature(ecs.TagPlayer, ecs.CCombat, ecs.CInput, ecs.CHealth, ecs.CTransform)
	npcAttSig  = ecs.Signature(ecs.TagNPC, ecs.CCombat, ecs.CAI, ecs.CHealth, ecs.CTransform)
)
