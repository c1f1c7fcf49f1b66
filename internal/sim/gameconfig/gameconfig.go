// Package gameconfig loads the JSON game data: world size, player classes,
// monsters, town layout and environment fields. Every file is validated
// against its embedded JSON Schema before decoding.
package gameconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	World       WorldConfig
	Classes     []ClassConfig
	Monster     MonsterConfig
	Town        TownConfig
	Environment EnvironmentConfig

	// Digests maps each loaded file name to the sha256 of its bytes.
	Digests map[string]string
}

type WorldConfig struct {
	Width               float32 `json:"width"`
	Height              float32 `json:"height"`
	HeightmapResolution uint32  `json:"heightmap_resolution"`
}

type ClassConfig struct {
	Name           string  `json:"name"`
	Model          string  `json:"model"`
	Animation      string  `json:"animation"`
	Health         float32 `json:"health"`
	Damage         float32 `json:"damage"`
	AttackRange    float32 `json:"attack_range"`
	AttackCooldown float32 `json:"attack_cooldown"`
	Color          Color   `json:"color"`
	SelectColor    Color   `json:"select_color"`
	UIColor        Color   `json:"ui_color"`
	ShortDesc      string  `json:"short_desc"`
	DescLine1      string  `json:"desc_line1"`
	DescLine2      string  `json:"desc_line2"`
	ShowsReticle   bool    `json:"shows_reticle"`
	EffectType     string  `json:"effect_type"`
	ConeAngle      float32 `json:"cone_angle"`
	Speed          float32 `json:"speed"`
	Size           float32 `json:"size"`
}

type MonsterConfig struct {
	Size           float32 `json:"size"`
	Speed          float32 `json:"speed"`
	Health         float32 `json:"health"`
	Damage         float32 `json:"damage"`
	AttackRange    float32 `json:"attack_range"`
	AttackCooldown float32 `json:"attack_cooldown"`
	AggroRange     float32 `json:"aggro_range"`
	Count          int     `json:"count"`
	Model          string  `json:"model"`
	Animation      string  `json:"animation"`
	Color          Color   `json:"color"`
}

type TownConfig struct {
	SafeZoneRadius float32          `json:"safe_zone_radius"`
	Wall           WallConfig       `json:"wall"`
	CornerTowers   TowerConfig      `json:"corner_towers"`
	Buildings      []BuildingConfig `json:"buildings"`
	NPCs           []TownNPCConfig  `json:"npcs"`
}

type WallConfig struct {
	Model      string  `json:"model"`
	Distance   float32 `json:"distance"`
	Spacing    float32 `json:"spacing"`
	GateWidth  float32 `json:"gate_width"`
	TargetSize float32 `json:"target_size"`
}

type TowerConfig struct {
	Model      string  `json:"model"`
	TargetSize float32 `json:"target_size"`
}

// BuildingConfig places a building at an offset (X, Y) from the town center;
// Y is the ground-plane Z offset. Rotation is in degrees.
type BuildingConfig struct {
	Type       string  `json:"type"`
	Model      string  `json:"model"`
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Name       string  `json:"name"`
	Rotation   float32 `json:"rotation"`
	TargetSize float32 `json:"target_size"`
}

type TownNPCConfig struct {
	Type    string  `json:"type"`
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Name    string  `json:"name"`
	Wanders bool    `json:"wanders"`
	Model   string  `json:"model"`
	Color   Color   `json:"color"`
}

// EnvironmentConfig describes the rock and tree rings around the town.
type EnvironmentConfig struct {
	Rocks  FieldConfig `json:"rocks"`
	Trees  FieldConfig `json:"trees"`
	Groves GroveConfig `json:"groves"`
}

type FieldConfig struct {
	Seed  int64        `json:"seed"`
	Color Color        `json:"color"`
	Zones []ZoneConfig `json:"zones"`
}

// ZoneConfig is one ring: Count objects at a distance in [MinDist, MaxDist)
// from the center with a scale in [MinScale, MaxScale). MinSpacing > 0 keeps
// objects apart.
type ZoneConfig struct {
	Count      int     `json:"count"`
	MinDist    float32 `json:"min_dist"`
	MaxDist    float32 `json:"max_dist"`
	MinScale   float32 `json:"min_scale"`
	MaxScale   float32 `json:"max_scale"`
	MinSpacing float32 `json:"min_spacing"`
}

// GroveConfig clusters trees around a few grove centers.
type GroveConfig struct {
	Count      int     `json:"count"`
	MinDist    float32 `json:"min_dist"`
	MaxDist    float32 `json:"max_dist"`
	MinTrees   int     `json:"min_trees"`
	MaxTrees   int     `json:"max_trees"`
	MinRadius  float32 `json:"min_radius"`
	MaxRadius  float32 `json:"max_radius"`
	MinScale   float32 `json:"min_scale"`
	MaxScale   float32 `json:"max_scale"`
	MinSpacing float32 `json:"min_spacing"`
}

// Load reads world.json, classes.json, monsters.json, town.json and
// environment.json from configDir.
func Load(configDir string) (*Config, error) {
	c := Default()
	c.Classes = nil
	c.Digests = map[string]string{}

	if err := loadFile(configDir, "world.json", &c.World, c.Digests); err != nil {
		return nil, err
	}
	if err := loadClasses(configDir, c); err != nil {
		return nil, err
	}
	if err := loadFile(configDir, "monsters.json", &c.Monster, c.Digests); err != nil {
		return nil, err
	}
	if err := loadTown(configDir, c); err != nil {
		return nil, err
	}
	if err := loadFile(configDir, "environment.json", &c.Environment, c.Digests); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readValidated reads name, records its digest and checks it against the
// schema of the same base name.
func readValidated(configDir, name string, digests map[string]string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(configDir, name))
	if err != nil {
		return nil, err
	}
	digests[name] = sha256Hex(raw)
	if err := validateSchema(name, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// loadFile decodes name over the defaults already held by out.
func loadFile(configDir, name string, out any, digests map[string]string) error {
	raw, err := readValidated(configDir, name, digests)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func loadClasses(configDir string, c *Config) error {
	raw, err := readValidated(configDir, "classes.json", c.Digests)
	if err != nil {
		return err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("classes.json: %w", err)
	}
	for i, item := range items {
		cls := DefaultClass()
		if err := json.Unmarshal(item, &cls); err != nil {
			return fmt.Errorf("classes.json[%d]: %w", i, err)
		}
		c.Classes = append(c.Classes, cls)
	}
	return nil
}

func loadTown(configDir string, c *Config) error {
	raw, err := readValidated(configDir, "town.json", c.Digests)
	if err != nil {
		return err
	}
	var doc struct {
		SafeZoneRadius *float32          `json:"safe_zone_radius"`
		Wall           *json.RawMessage  `json:"wall"`
		CornerTowers   *json.RawMessage  `json:"corner_towers"`
		Buildings      []json.RawMessage `json:"buildings"`
		NPCs           []json.RawMessage `json:"npcs"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("town.json: %w", err)
	}
	if doc.SafeZoneRadius != nil {
		c.Town.SafeZoneRadius = *doc.SafeZoneRadius
	}
	if doc.Wall != nil {
		if err := json.Unmarshal(*doc.Wall, &c.Town.Wall); err != nil {
			return fmt.Errorf("town.json wall: %w", err)
		}
	}
	if doc.CornerTowers != nil {
		if err := json.Unmarshal(*doc.CornerTowers, &c.Town.CornerTowers); err != nil {
			return fmt.Errorf("town.json corner_towers: %w", err)
		}
	}
	c.Town.Buildings = nil
	for i, item := range doc.Buildings {
		b := BuildingConfig{Type: "house", Model: "building_house", Name: "Building", TargetSize: 100}
		if err := json.Unmarshal(item, &b); err != nil {
			return fmt.Errorf("town.json buildings[%d]: %w", i, err)
		}
		c.Town.Buildings = append(c.Town.Buildings, b)
	}
	c.Town.NPCs = nil
	for i, item := range doc.NPCs {
		n := TownNPCConfig{Type: "villager", Name: "NPC", Model: "npc_villager", Color: 0xFFAAAAAA}
		if err := json.Unmarshal(item, &n); err != nil {
			return fmt.Errorf("town.json npcs[%d]: %w", i, err)
		}
		c.Town.NPCs = append(c.Town.NPCs, n)
	}
	return nil
}

// Validate checks cross-field rules the schemas cannot express.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world.json: width and height must be > 0")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("classes.json: at least one class is required")
	}
	if len(c.Classes) > 255 {
		return fmt.Errorf("classes.json: %d classes exceeds 255", len(c.Classes))
	}
	// Monsters spawn in [100, size-100] outside the safe zone ring.
	if c.World.Width <= 200 || c.World.Height <= 200 {
		return fmt.Errorf("world.json: world must be larger than 200x200")
	}
	return nil
}

// Class returns the class at index, clamped into range.
func (c *Config) Class(index int) (int, ClassConfig) {
	if index < 0 {
		index = 0
	}
	if index >= len(c.Classes) {
		index = len(c.Classes) - 1
	}
	return index, c.Classes[index]
}

// TownCenter is the middle of the world; the safe zone is centered on it.
func (c *Config) TownCenter() (x, z float32) {
	return c.World.Width / 2, c.World.Height / 2
}
