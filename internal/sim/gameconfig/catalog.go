package gameconfig

import (
	"strings"

	"mmoarena.ai/internal/protocol"
)

// PlayerTargetSize and the NPC sizes are the rendered heights the client
// scales models to.
const (
	PlayerTargetSize  = 32
	MonsterTargetSize = 36
	TownNPCTargetSize = PlayerTargetSize * 0.9
)

var buildingTypes = map[string]uint8{
	"tavern":     protocol.BuildingTavern,
	"blacksmith": protocol.BuildingBlacksmith,
	"tower":      protocol.BuildingTower,
	"shop":       protocol.BuildingShop,
	"well":       protocol.BuildingWell,
	"house":      protocol.BuildingHouse,
	"inn":        protocol.BuildingInn,
}

// BuildingType maps a config name to its wire subtype. Unknown names are
// houses.
func BuildingType(name string) uint8 {
	if t, ok := buildingTypes[strings.ToLower(name)]; ok {
		return t
	}
	return protocol.BuildingHouse
}

var npcTypes = map[string]uint8{
	"innkeeper":  protocol.NPCInnkeeper,
	"blacksmith": protocol.NPCBlacksmith,
	"merchant":   protocol.NPCMerchant,
	"guard":      protocol.NPCGuard,
	"villager":   protocol.NPCVillager,
}

// NPCType maps a town NPC config name to its wire subtype; unknown names are
// villagers.
func NPCType(name string) uint8 {
	if t, ok := npcTypes[strings.ToLower(name)]; ok {
		return t
	}
	return protocol.NPCVillager
}

func BuildingModel(t uint8) string {
	switch t {
	case protocol.BuildingTavern:
		return "building_tavern"
	case protocol.BuildingBlacksmith:
		return "building_blacksmith"
	case protocol.BuildingTower:
		return "building_tower"
	case protocol.BuildingShop:
		return "building_shop"
	case protocol.BuildingWell:
		return "building_well"
	case protocol.BuildingInn:
		return "inn"
	case protocol.BuildingWoodenLog:
		return "wooden_log"
	case protocol.BuildingLogTower:
		return "log_tower"
	default:
		return "building_house"
	}
}

func BuildingTargetSize(t uint8) float32 {
	switch t {
	case protocol.BuildingTower:
		return 160
	case protocol.BuildingTavern:
		return 140
	case protocol.BuildingBlacksmith:
		return 120
	case protocol.BuildingShop:
		return 100
	case protocol.BuildingWell:
		return 60
	case protocol.BuildingInn:
		return 150
	case protocol.BuildingWoodenLog:
		return 60
	case protocol.BuildingLogTower:
		return 140
	default:
		return 110
	}
}

var envModels = [...]string{
	protocol.EnvRockBoulder: "rock_boulder",
	protocol.EnvRockSlate:   "rock_slate",
	protocol.EnvRockSpire:   "rock_spire",
	protocol.EnvRockCluster: "rock_cluster",
	protocol.EnvRockMossy:   "rock_mossy",
	protocol.EnvTreeOak:     "tree_oak",
	protocol.EnvTreePine:    "tree_pine",
	protocol.EnvTreeDead:    "tree_dead",
}

var envTargets = [...]float32{
	protocol.EnvRockBoulder: 25,
	protocol.EnvRockSlate:   30,
	protocol.EnvRockSpire:   35,
	protocol.EnvRockCluster: 28,
	protocol.EnvRockMossy:   22,
	protocol.EnvTreeOak:     320,
	protocol.EnvTreePine:    360,
	protocol.EnvTreeDead:    280,
}

func EnvironmentModel(t uint8) string {
	if int(t) < len(envModels) {
		return envModels[t]
	}
	return envModels[protocol.EnvRockBoulder]
}

func EnvironmentTargetSize(t uint8) float32 {
	if int(t) < len(envTargets) {
		return envTargets[t]
	}
	return envTargets[protocol.EnvRockBoulder]
}

func IsTree(t uint8) bool { return t >= protocol.EnvTreeOak }

// TreeRadiusFactor is the trunk collider radius as a fraction of scale.
func TreeRadiusFactor(t uint8) float32 {
	switch t {
	case protocol.EnvTreePine:
		return 0.06
	case protocol.EnvTreeDead:
		return 0.05
	default:
		return 0.08
	}
}

func NPCModel(t uint8) string {
	switch t {
	case protocol.NPCMerchant:
		return "npc_merchant"
	case protocol.NPCGuard:
		return "npc_guard"
	case protocol.NPCBlacksmith:
		return "npc_blacksmith"
	case protocol.NPCInnkeeper:
		return "npc_innkeeper"
	case protocol.NPCVillager:
		return "npc_villager"
	default:
		return "npc_enemy"
	}
}

// Info is the class-select projection of a class.
func (c ClassConfig) Info() protocol.ClassInfo {
	return protocol.ClassInfo{
		Name:         c.Name,
		ShortDesc:    c.ShortDesc,
		DescLine1:    c.DescLine1,
		DescLine2:    c.DescLine2,
		Model:        c.Model,
		Color:        uint32(c.Color),
		SelectColor:  uint32(c.SelectColor),
		UIColor:      uint32(c.UIColor),
		ShowsReticle: c.ShowsReticle,
	}
}

func (c *Config) ClassInfos() []protocol.ClassInfo {
	out := make([]protocol.ClassInfo, 0, len(c.Classes))
	for _, cls := range c.Classes {
		out = append(out, cls.Info())
	}
	return out
}
