package gameconfig

// Default is the built-in game data, used when a file omits a key and by
// tests that do not need a config directory.
func Default() *Config {
	return &Config{
		World: WorldConfig{Width: 8000, Height: 8000, HeightmapResolution: 257},
		Classes: []ClassConfig{
			withClass("Warrior", "warrior", 150, 15, 60, 0.8, 0.6, 200, 0xCC3333FF, "Melee fighter", "High health, wide swings", "Best up close"),
			withClass("Mage", "mage", 80, 25, 250, 1.2, 0.3, 180, 0x3366FFFF, "Ranged caster", "Long reach, narrow focus", "Fragile", func(c *ClassConfig) {
				c.ShowsReticle = true
				c.EffectType = "magic"
			}),
			withClass("Paladin", "paladin", 130, 12, 70, 1.0, 0.7, 190, 0xFFCC33FF, "Holy knight", "Sturdy and steady", "Good all-rounder"),
			withClass("Archer", "archer", 90, 18, 300, 0.9, 0.2, 220, 0x33CC66FF, "Ranged hunter", "Longest reach", "Fast on foot", func(c *ClassConfig) {
				c.ShowsReticle = true
				c.EffectType = "arrow"
			}),
		},
		Monster: DefaultMonster(),
		Town: TownConfig{
			SafeZoneRadius: 400,
			Wall:           WallConfig{Model: "wooden_log", Distance: 500, Spacing: 35, GateWidth: 80, TargetSize: 60},
			CornerTowers:   TowerConfig{Model: "log_tower", TargetSize: 140},
		},
		Environment: EnvironmentConfig{
			Rocks: FieldConfig{Seed: 12345, Color: 0xFF666666, Zones: []ZoneConfig{
				{Count: 40, MinDist: 800, MaxDist: 1500, MinScale: 15, MaxScale: 40},
				{Count: 60, MinDist: 1500, MaxDist: 2500, MinScale: 25, MaxScale: 65},
				{Count: 50, MinDist: 2500, MaxDist: 3500, MinScale: 40, MaxScale: 100},
			}},
			Trees: FieldConfig{Seed: 67890, Color: 0xFF228822, Zones: []ZoneConfig{
				{Count: 30, MinDist: 400, MaxDist: 900, MinScale: 240, MaxScale: 560, MinSpacing: 150},
				{Count: 50, MinDist: 900, MaxDist: 1800, MinScale: 320, MaxScale: 720, MinSpacing: 225},
				{Count: 25, MinDist: 1800, MaxDist: 2800, MinScale: 400, MaxScale: 880, MinSpacing: 300},
			}},
			Groves: GroveConfig{
				Count: 4, MinDist: 600, MaxDist: 1400,
				MinTrees: 10, MaxTrees: 15,
				MinRadius: 50, MaxRadius: 200,
				MinScale: 280, MaxScale: 560, MinSpacing: 150,
			},
		},
	}
}

func DefaultClass() ClassConfig {
	return ClassConfig{
		Name:           "Unknown",
		Model:          "warrior",
		Health:         100,
		Damage:         10,
		AttackRange:    50,
		AttackCooldown: 1,
		Color:          0xFFFFFFFF,
		SelectColor:    0xFFFFFFFF,
		UIColor:        0xFFFFFFFF,
		ConeAngle:      0.5,
		Speed:          200,
		Size:           32,
	}
}

func DefaultMonster() MonsterConfig {
	return MonsterConfig{
		Size:           36,
		Speed:          100,
		Health:         100,
		Damage:         15,
		AttackRange:    50,
		AttackCooldown: 1.2,
		AggroRange:     300,
		Count:          10,
		Model:          "npc_enemy",
		Color:          0xFF4444FF,
	}
}

func withClass(name, model string, health, damage, rng, cooldown, cone, speed float32, color Color, short, d1, d2 string, opts ...func(*ClassConfig)) ClassConfig {
	c := DefaultClass()
	c.Name = name
	c.Model = model
	c.Health = health
	c.Damage = damage
	c.AttackRange = rng
	c.AttackCooldown = cooldown
	c.ConeAngle = cone
	c.Speed = speed
	c.Color = color
	c.SelectColor = color
	c.UIColor = color
	c.ShortDesc = short
	c.DescLine1 = d1
	c.DescLine2 = d2
	for _, o := range opts {
		o(&c)
	}
	return c
}
