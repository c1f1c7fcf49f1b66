package protocol

import "fmt"

// DefaultPort is used when the server is started without a port argument.
const DefaultPort uint16 = 7777

// HeaderSize is the fixed frame header: type u8 + payload_size u32 (LE).
const HeaderSize = 5

// DefaultMaxPayload bounds a single frame. A full 257x257 heightmap chunk is
// ~132 KiB, so 1 MiB leaves headroom without letting a client pin memory.
const DefaultMaxPayload = 1 << 20

// MessageType is the first byte of every frame.
type MessageType uint8

// Client -> server.
const (
	TypeConnect          MessageType = 1
	TypeDisconnect       MessageType = 2
	TypePlayerInput      MessageType = 3
	TypePlayerAttack     MessageType = 4
	TypeHeightmapRequest MessageType = 21
	TypeClassSelect      MessageType = 31
)

// Server -> client.
const (
	TypeConnectionAccepted MessageType = 10
	TypeConnectionRejected MessageType = 11
	TypePlayerJoined       MessageType = 12
	TypePlayerLeft         MessageType = 13
	TypeWorldState         MessageType = 14
	TypePlayerUpdate       MessageType = 15
	TypeCombatEvent        MessageType = 16
	TypeEntityDeath        MessageType = 17
	TypeHeightmapChunk     MessageType = 20
	TypeWorldConfig        MessageType = 29
	TypeClassList          MessageType = 30
	TypeEntityEnter        MessageType = 40
	TypeEntityUpdate       MessageType = 41
	TypeEntityExit         MessageType = 42
)

var typeNames = map[MessageType]string{
	TypeConnect:            "Connect",
	TypeDisconnect:         "Disconnect",
	TypePlayerInput:        "PlayerInput",
	TypePlayerAttack:       "PlayerAttack",
	TypeConnectionAccepted: "ConnectionAccepted",
	TypeConnectionRejected: "ConnectionRejected",
	TypePlayerJoined:       "PlayerJoined",
	TypePlayerLeft:         "PlayerLeft",
	TypeWorldState:         "WorldState",
	TypePlayerUpdate:       "PlayerUpdate",
	TypeCombatEvent:        "CombatEvent",
	TypeEntityDeath:        "EntityDeath",
	TypeHeightmapChunk:     "HeightmapChunk",
	TypeHeightmapRequest:   "HeightmapRequest",
	TypeWorldConfig:        "WorldConfig",
	TypeClassList:          "ClassList",
	TypeClassSelect:        "ClassSelect",
	TypeEntityEnter:        "EntityEnter",
	TypeEntityUpdate:       "EntityUpdate",
	TypeEntityExit:         "EntityExit",
}

func (t MessageType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// EntityType is the replicated kind of an entity.
type EntityType uint8

const (
	EntityPlayer      EntityType = 0
	EntityNPC         EntityType = 1
	EntityTownNPC     EntityType = 2
	EntityBuilding    EntityType = 3
	EntityEnvironment EntityType = 4
)

// EntityTypeCount is the number of defined entity kinds.
const EntityTypeCount = 5

func (k EntityType) String() string {
	switch k {
	case EntityPlayer:
		return "player"
	case EntityNPC:
		return "npc"
	case EntityTownNPC:
		return "town_npc"
	case EntityBuilding:
		return "building"
	case EntityEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("entity_type_%d", uint8(k))
	}
}

// NPC subtypes.
const (
	NPCMonster    uint8 = 0
	NPCMerchant   uint8 = 1
	NPCGuard      uint8 = 2
	NPCBlacksmith uint8 = 3
	NPCInnkeeper  uint8 = 4
	NPCVillager   uint8 = 5
)

// Building subtypes.
const (
	BuildingTavern     uint8 = 0
	BuildingBlacksmith uint8 = 1
	BuildingTower      uint8 = 2
	BuildingShop       uint8 = 3
	BuildingWell       uint8 = 4
	BuildingHouse      uint8 = 5
	BuildingInn        uint8 = 6
	BuildingWoodenLog  uint8 = 7
	BuildingLogTower   uint8 = 8
)

// Environment subtypes. Values >= EnvTreeOak are trees.
const (
	EnvRockBoulder uint8 = 0
	EnvRockSlate   uint8 = 1
	EnvRockSpire   uint8 = 2
	EnvRockCluster uint8 = 3
	EnvRockMossy   uint8 = 4
	EnvTreeOak     uint8 = 5
	EnvTreePine    uint8 = 6
	EnvTreeDead    uint8 = 7
)

// Input flag bits carried in PlayerInput.Flags.
const (
	InputUp        uint8 = 0x01
	InputDown      uint8 = 0x02
	InputLeft      uint8 = 0x04
	InputRight     uint8 = 0x08
	InputAttacking uint8 = 0x10
)

// Delta group bits carried in EntityDelta.Flags.
const (
	DeltaPosition  uint8 = 0x01
	DeltaVelocity  uint8 = 0x02
	DeltaHealth    uint8 = 0x04
	DeltaAttacking uint8 = 0x08
	DeltaAttackDir uint8 = 0x10
	DeltaRotation  uint8 = 0x20

	DeltaAll = DeltaPosition | DeltaVelocity | DeltaHealth | DeltaAttacking | DeltaAttackDir | DeltaRotation
)
