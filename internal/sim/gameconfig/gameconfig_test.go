package gameconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mmoarena.ai/internal/protocol"
)

func repoConfigs(t *testing.T) string {
	t.Helper()
	return filepath.Join("..", "..", "..", "configs")
}

func TestLoad_RepoConfigs(t *testing.T) {
	c, err := Load(repoConfigs(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.World.Width != 8000 || c.World.Height != 8000 {
		t.Fatalf("world=%+v", c.World)
	}
	if len(c.Classes) != 4 {
		t.Fatalf("classes=%d", len(c.Classes))
	}
	if c.Classes[1].Name != "Mage" || !c.Classes[1].ShowsReticle {
		t.Fatalf("mage=%+v", c.Classes[1])
	}
	if c.Monster.Count != 10 || c.Monster.Color != 0xFF4444FF {
		t.Fatalf("monster=%+v", c.Monster)
	}
	if c.Town.SafeZoneRadius != 400 || len(c.Town.Buildings) == 0 || len(c.Town.NPCs) == 0 {
		t.Fatalf("town=%+v", c.Town)
	}
	if len(c.Environment.Rocks.Zones) != 3 || c.Environment.Trees.Seed != 67890 {
		t.Fatalf("environment=%+v", c.Environment)
	}
	for _, name := range []string{"world.json", "classes.json", "monsters.json", "town.json", "environment.json"} {
		if len(c.Digests[name]) != 64 {
			t.Fatalf("digest %s=%q", name, c.Digests[name])
		}
	}
}

func writeConfigDir(t *testing.T, override map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"world.json", "classes.json", "monsters.json", "town.json", "environment.json"} {
		raw, err := os.ReadFile(filepath.Join(repoConfigs(t), name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if s, ok := override[name]; ok {
			raw = []byte(s)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoad_ClassDefaultsPerElement(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"classes.json": `[{"name":"Bare"},{"name":"Fast","speed":400,"color":"255"}]`,
	})
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bare := c.Classes[0]
	if bare.Health != 100 || bare.Damage != 10 || bare.AttackRange != 50 || bare.AttackCooldown != 1 ||
		bare.ConeAngle != 0.5 || bare.Speed != 200 || bare.Size != 32 || bare.Model != "warrior" || bare.Color != 0xFFFFFFFF {
		t.Fatalf("defaults not applied: %+v", bare)
	}
	if c.Classes[1].Speed != 400 || c.Classes[1].Health != 100 || c.Classes[1].Color != 255 {
		t.Fatalf("fast=%+v", c.Classes[1])
	}
}

func TestLoad_TownDefaults(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"town.json": `{"buildings":[{"type":"mystery","x":1,"y":2}],"npcs":[{"x":3,"y":4}]}`,
	})
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Town.SafeZoneRadius != 400 || c.Town.Wall.Spacing != 35 || c.Town.CornerTowers.TargetSize != 140 {
		t.Fatalf("town=%+v", c.Town)
	}
	b := c.Town.Buildings[0]
	if b.TargetSize != 100 || BuildingType(b.Type) != protocol.BuildingHouse {
		t.Fatalf("building=%+v", b)
	}
	n := c.Town.NPCs[0]
	if n.Type != "villager" || n.Color != 0xFFAAAAAA || n.Wanders {
		t.Fatalf("npc=%+v", n)
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"empty classes":    {"classes.json": `[]`},
		"negative health":  {"classes.json": `[{"name":"X","health":-1}]`},
		"unknown key":      {"monsters.json": `{"sizee":3}`},
		"bad color":        {"monsters.json": `{"color":"0xZZ"}`},
		"tiny world":       {"world.json": `{"width":100,"height":100}`},
		"zone missing key": {"environment.json": `{"rocks":{"zones":[{"count":1}]}}`},
		"not json":         {"town.json": `{`},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfigDir(t, override)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoad_ErrorNamesFile(t *testing.T) {
	_, err := Load(writeConfigDir(t, map[string]string{"monsters.json": `{"count":-5}`}))
	if err == nil || !strings.Contains(err.Error(), "monsters.json") {
		t.Fatalf("err=%v", err)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"0xFF4444FF", 0xFF4444FF, true},
		{"0Xff", 0xFF, true},
		{"4294967295", 0xFFFFFFFF, true},
		{"0x1FFFFFFFF", 0, false},
		{"red", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("%q: got %#x err=%v", tc.in, got, err)
		}
	}
}

func TestClass_ClampsIndex(t *testing.T) {
	c := Default()
	if i, _ := c.Class(-3); i != 0 {
		t.Fatalf("low clamp=%d", i)
	}
	if i, cls := c.Class(99); i != len(c.Classes)-1 || cls.Name != "Archer" {
		t.Fatalf("high clamp=%d %s", i, cls.Name)
	}
	infos := c.ClassInfos()
	if len(infos) != len(c.Classes) || infos[3].ShowsReticle != true {
		t.Fatalf("infos=%+v", infos)
	}
}

func TestCatalog_Mappings(t *testing.T) {
	if NPCType("GUARD") != protocol.NPCGuard || NPCType("?") != protocol.NPCVillager {
		t.Fatalf("npc type mapping")
	}
	if BuildingModel(protocol.BuildingInn) != "inn" || BuildingTargetSize(protocol.BuildingTower) != 160 {
		t.Fatalf("building presentation")
	}
	if EnvironmentModel(protocol.EnvTreePine) != "tree_pine" || EnvironmentTargetSize(protocol.EnvRockMossy) != 22 {
		t.Fatalf("environment presentation")
	}
	if !IsTree(protocol.EnvTreeDead) || IsTree(protocol.EnvRockMossy) {
		t.Fatalf("IsTree")
	}
}
