package world

import (
	"fmt"
	"math"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/gameconfig"
	"mmoarena.ai/internal/sim/mathx"
)

const (
	staticHealth       = 9999
	townNPCHealth      = 1000
	buildingColor      = 0xFFBB9977
	wallInset          = 60
	wanderRadius       = 80
	characterMass      = 70
	monsterMass        = 80
	playerSpawnJitter  = 50
	monsterSpawnMargin = 100
	monsterSafeMargin  = 100
	spawnAttempts      = 10
)

func degToRad(d float32) float32 { return d * math.Pi / 180 }

// characterCollider sizes a standing capsule from the rendered height.
func characterCollider(size float32) ecs.Collider {
	return ecs.Collider{Shape: ecs.ShapeCapsule, Radius: size * 0.35, HalfHeight: size * 0.4}
}

func (w *World) spawnTown() {
	cx, cz := w.cfg.TownCenter()
	town := w.cfg.Town

	for _, b := range town.Buildings {
		w.spawnBuilding(gameconfig.BuildingType(b.Type), b.Model, b.Name, cx+b.X, cz+b.Y, b.Rotation, b.TargetSize)
	}

	wall := town.Wall
	d := wall.Distance
	gate := wall.GateWidth / 2
	logs := func(fn func(off float32)) {
		if wall.Spacing <= 0 {
			return
		}
		for off := -d + wallInset; off <= d-wallInset; off += wall.Spacing {
			fn(off)
		}
	}
	spawnLog := func(x, z, rot float32) {
		w.spawnBuilding(protocol.BuildingWoodenLog, wall.Model, "Log", x, z, rot, wall.TargetSize)
	}
	// South and north walls have a gate; west is solid; east has a gate.
	logs(func(x float32) {
		if abs32(x) >= gate {
			spawnLog(cx+x, cz-d, 0)
		}
	})
	logs(func(x float32) {
		if abs32(x) >= gate {
			spawnLog(cx+x, cz+d, 0)
		}
	})
	logs(func(z float32) { spawnLog(cx-d, cz+z, 90) })
	logs(func(z float32) {
		if abs32(z) >= gate {
			spawnLog(cx+d, cz+z, 90)
		}
	})

	towers := town.CornerTowers
	for _, c := range [4][2]float32{{-d, -d}, {d, -d}, {-d, d}, {d, d}} {
		w.spawnBuilding(protocol.BuildingLogTower, towers.Model, "Tower", cx+c[0], cz+c[1], 0, towers.TargetSize)
	}

	for _, n := range town.NPCs {
		w.spawnTownNPC(n, cx+n.X, cz+n.Y)
	}
}

func (w *World) spawnBuilding(kind uint8, model, name string, x, z, rotDeg, target float32) ecs.Entity {
	s := w.store
	if model == "" {
		model = gameconfig.BuildingModel(kind)
	}
	if target <= 0 {
		target = gameconfig.BuildingTargetSize(kind)
	}
	e := s.Create()
	s.Transform.Set(e, ecs.Transform{X: x, Y: w.HeightAt(x, z), Z: z, Rotation: degToRad(rotDeg)})
	s.Health.Set(e, ecs.Health{Current: staticHealth, Max: staticHealth})
	s.Info.Set(e, ecs.EntityInfo{
		Type:       uint8(protocol.EntityBuilding),
		Subtype:    kind,
		Model:      model,
		Color:      buildingColor,
		TargetSize: target,
	})
	s.Name.Set(e, ecs.Name{Value: name})
	s.Scale.Set(e, ecs.Scale{X: 1, Y: 1, Z: 1})
	s.Collider.Set(e, ecs.Collider{Shape: ecs.ShapeBox, HalfX: target * 0.4, HalfY: target * 0.5, HalfZ: target * 0.4})
	s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyStatic})
	s.Tag(e, ecs.TagStatic)
	return e
}

func (w *World) spawnTownNPC(n gameconfig.TownNPCConfig, x, z float32) ecs.Entity {
	s := w.store
	kind := gameconfig.NPCType(n.Type)
	model := n.Model
	if model == "" {
		model = gameconfig.NPCModel(kind)
	}
	e := s.Create()
	s.Transform.Set(e, ecs.Transform{X: x, Y: w.HeightAt(x, z), Z: z})
	s.Velocity.Set(e, ecs.Velocity{})
	s.Health.Set(e, ecs.Health{Current: townNPCHealth, Max: townNPCHealth})
	s.Info.Set(e, ecs.EntityInfo{
		Type:       uint8(protocol.EntityTownNPC),
		Subtype:    kind,
		Model:      model,
		Color:      uint32(n.Color),
		TargetSize: gameconfig.TownNPCTargetSize,
	})
	s.Name.Set(e, ecs.Name{Value: n.Name})
	s.Scale.Set(e, ecs.Scale{X: 1, Y: 1, Z: 1})
	s.Collider.Set(e, characterCollider(gameconfig.TownNPCTargetSize))
	s.Tag(e, ecs.TagTownNPC)
	if n.Wanders {
		s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyDynamic, Mass: characterMass})
		s.TownAI.Set(e, ecs.TownNPCAI{HomeX: x, HomeZ: z, WanderRadius: wanderRadius})
	} else {
		s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyStatic, Mass: characterMass})
		s.Tag(e, ecs.TagStatic)
	}
	return e
}

// spawnMonsters scatters hostile NPCs across the world outside the safe
// zone ring. A position inside the ring is rerolled; after spawnAttempts
// misses the monster is skipped.
func (w *World) spawnMonsters() {
	m := w.cfg.Monster
	cx, cz := w.cfg.TownCenter()
	keepOut := w.cfg.Town.SafeZoneRadius + monsterSafeMargin
	for i := 0; i < m.Count; i++ {
		for attempt := 0; attempt < spawnAttempts; attempt++ {
			x := w.rng.Range(monsterSpawnMargin, w.cfg.World.Width-monsterSpawnMargin)
			z := w.rng.Range(monsterSpawnMargin, w.cfg.World.Height-monsterSpawnMargin)
			if mathx.DistSq(x, z, cx, cz) < keepOut*keepOut {
				continue
			}
			w.spawnMonster(fmt.Sprintf("Monster_%d", i), x, z)
			break
		}
	}
}

func (w *World) spawnMonster(name string, x, z float32) ecs.Entity {
	s := w.store
	m := w.cfg.Monster
	e := s.Create()
	s.Transform.Set(e, ecs.Transform{X: x, Y: w.HeightAt(x, z), Z: z})
	s.Velocity.Set(e, ecs.Velocity{})
	s.Health.Set(e, ecs.Health{Current: m.Health, Max: m.Health})
	s.Combat.Set(e, ecs.Combat{Damage: m.Damage, AttackRange: m.AttackRange, AttackCooldown: m.AttackCooldown})
	s.AI.Set(e, ecs.AIState{AggroRange: m.AggroRange, MonsterSpeed: m.Speed})
	s.Info.Set(e, ecs.EntityInfo{
		Type:       uint8(protocol.EntityNPC),
		Subtype:    protocol.NPCMonster,
		Model:      m.Model,
		Color:      uint32(m.Color),
		Speed:      m.Speed,
		TargetSize: m.Size,
		Animation:  m.Animation,
	})
	s.Name.Set(e, ecs.Name{Value: name})
	s.Scale.Set(e, ecs.Scale{X: 1, Y: 1, Z: 1})
	s.Collider.Set(e, characterCollider(m.Size))
	s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyDynamic, Mass: monsterMass})
	s.Tag(e, ecs.TagNPC)
	return e
}

// spawnPlayer places a new player near the town center with the stats of
// its class.
func (w *World) spawnPlayer(name string, class int) ecs.Entity {
	s := w.store
	idx, cls := w.cfg.Class(class)
	cx, cz := w.cfg.TownCenter()
	x := cx + w.rng.Range(-playerSpawnJitter, playerSpawnJitter)
	z := cz + w.rng.Range(-playerSpawnJitter, playerSpawnJitter)

	e := s.Create()
	s.Transform.Set(e, ecs.Transform{X: x, Y: w.HeightAt(x, z), Z: z})
	s.Velocity.Set(e, ecs.Velocity{})
	s.Health.Set(e, ecs.Health{Current: cls.Health, Max: cls.Health})
	s.Combat.Set(e, ecs.Combat{
		Damage:         cls.Damage,
		AttackRange:    cls.AttackRange,
		AttackCooldown: cls.AttackCooldown,
		ConeAngle:      cls.ConeAngle,
	})
	s.Input.Set(e, ecs.InputState{})
	s.AttackDirection.Set(e, ecs.AttackDirection{X: 0, Y: 1})
	s.Info.Set(e, ecs.EntityInfo{
		Type:         uint8(protocol.EntityPlayer),
		Subtype:      uint8(idx),
		Model:        cls.Model,
		Color:        uint32(cls.Color),
		Speed:        cls.Speed,
		TargetSize:   cls.Size,
		Animation:    cls.Animation,
		Effect:       cls.EffectType,
		ShowsReticle: cls.ShowsReticle,
	})
	s.Name.Set(e, ecs.Name{Value: name})
	s.Scale.Set(e, ecs.Scale{X: 1, Y: 1, Z: 1})
	s.Collider.Set(e, characterCollider(cls.Size))
	s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyDynamic, Mass: characterMass})
	s.Tag(e, ecs.TagPlayer)
	return e
}

// spawnEnvironment lays out rocks and trees from their own seeds, so the
// layout does not depend on the world seed.
func (w *World) spawnEnvironment() {
	env := w.cfg.Environment
	cx, cz := w.cfg.TownCenter()

	rocks := mathx.NewRand(env.Rocks.Seed)
	for _, zone := range env.Rocks.Zones {
		for i := 0; i < zone.Count; i++ {
			angle := rocks.Range(0, 2*math.Pi)
			dist := rocks.Range(zone.MinDist, zone.MaxDist)
			scale := rocks.Range(zone.MinScale, zone.MaxScale)
			rot := rocks.Range(0, 360)
			kind := uint8(rocks.Intn(int(protocol.EnvTreeOak)))
			x, z := polar(cx, cz, angle, dist)
			w.spawnProp(kind, x, z, scale, rot, env.Rocks.Color)
		}
	}

	trees := mathx.NewRand(env.Trees.Seed)
	var placed [][2]float32
	tooClose := func(x, z, spacing float32) bool {
		for _, p := range placed {
			if mathx.DistSq(x, z, p[0], p[1]) < spacing*spacing {
				return true
			}
		}
		return false
	}
	plant := func(kind uint8, x, z, scale, rot float32) {
		w.spawnProp(kind, x, z, scale, rot, env.Trees.Color)
		placed = append(placed, [2]float32{x, z})
	}

	for _, zone := range env.Trees.Zones {
		for i := 0; i < zone.Count; i++ {
			for attempt := 0; attempt < spawnAttempts; attempt++ {
				angle := trees.Range(0, 2*math.Pi)
				dist := trees.Range(zone.MinDist, zone.MaxDist)
				x, z := polar(cx, cz, angle, dist)
				if tooClose(x, z, zone.MinSpacing) {
					continue
				}
				scale := trees.Range(zone.MinScale, zone.MaxScale)
				rot := trees.Range(0, 360)
				plant(protocol.EnvTreeOak+uint8(trees.Intn(2)), x, z, scale, rot)
				break
			}
		}
	}

	g := env.Groves
	for grove := 0; grove < g.Count; grove++ {
		angle := float32(grove)*(2*math.Pi/float32(g.Count)) + trees.Range(0, 0.5)
		dist := trees.Range(g.MinDist, g.MaxDist)
		gx, gz := polar(cx, cz, angle, dist)
		size := g.MinTrees + trees.Intn(g.MaxTrees-g.MinTrees+1)
		groveType := uint8(trees.Intn(2))

		for i := 0; i < size; i++ {
			for attempt := 0; attempt < spawnAttempts; attempt++ {
				off := trees.Range(0, 2*math.Pi)
				r := trees.Range(g.MinRadius, g.MaxRadius)
				x, z := polar(gx, gz, off, r)
				if tooClose(x, z, g.MinSpacing) {
					continue
				}
				scale := trees.Range(g.MinScale, g.MaxScale)
				rot := trees.Range(0, 360)
				// Mostly the grove's own species.
				kind := groveType
				if trees.Intn(10) >= 7 {
					kind = 1 - groveType
				}
				plant(protocol.EnvTreeOak+kind, x, z, scale, rot)
				break
			}
		}
	}
}

func (w *World) spawnProp(kind uint8, x, z, scale, rotDeg float32, color gameconfig.Color) ecs.Entity {
	s := w.store
	model := gameconfig.EnvironmentModel(kind)
	e := s.Create()
	s.Transform.Set(e, ecs.Transform{X: x, Y: w.HeightAt(x, z), Z: z, Rotation: degToRad(rotDeg)})
	s.Health.Set(e, ecs.Health{Current: staticHealth, Max: staticHealth})
	s.Info.Set(e, ecs.EntityInfo{
		Type:       uint8(protocol.EntityEnvironment),
		Subtype:    kind,
		Model:      model,
		Color:      uint32(color),
		TargetSize: gameconfig.EnvironmentTargetSize(kind),
	})
	s.Name.Set(e, ecs.Name{Value: model})
	s.Scale.Set(e, ecs.Scale{X: scale, Y: scale, Z: scale})
	if gameconfig.IsTree(kind) {
		s.Collider.Set(e, ecs.Collider{Shape: ecs.ShapeCapsule, Radius: scale * gameconfig.TreeRadiusFactor(kind), HalfHeight: scale * 0.4})
	} else {
		s.Collider.Set(e, ecs.Collider{Shape: ecs.ShapeBox, HalfX: scale * 0.35, HalfY: scale * 0.5, HalfZ: scale * 0.35})
	}
	s.RigidBody.Set(e, ecs.RigidBody{Kind: ecs.BodyStatic})
	s.Tag(e, ecs.TagStatic)
	return e
}

func polar(cx, cz, angle, dist float32) (x, z float32) {
	a := float64(angle)
	return cx + float32(math.Cos(a))*dist, cz + float32(math.Sin(a))*dist
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
