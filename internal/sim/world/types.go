package world

import (
	"errors"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/systems"
)

var ErrServerFull = errors.New("world: server full")

// JoinRequest spawns a player at the next tick boundary. Resp, when set,
// receives exactly one JoinResponse and must have room for it.
type JoinRequest struct {
	Name  string
	Class int
	Resp  chan JoinResponse
}

type JoinResponse struct {
	ID    ecs.NetworkID
	State protocol.NetEntityState
	Err   error
}

type InputEnvelope struct {
	ID    ecs.NetworkID
	Input protocol.PlayerInput
}

// TickResult is handed to the tick hook on the simulation goroutine after
// every step. States is in ascending entity slot order.
type TickResult struct {
	Tick   uint64
	Now    float64
	States []protocol.NetEntityState
	Joined []protocol.NetEntityState
	Left   []ecs.NetworkID
	Combat []systems.CombatEvent
}

type RecordedJoin struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Class int    `json:"class"`
}

type RecordedInput struct {
	ID    uint32  `json:"id"`
	Flags uint8   `json:"flags"`
	AimX  float32 `json:"aim_x"`
	AimY  float32 `json:"aim_y"`
	MoveX float32 `json:"move_x"`
	MoveY float32 `json:"move_y"`
}

func recordInput(env InputEnvelope) RecordedInput {
	in := env.Input
	return RecordedInput{ID: uint32(env.ID), Flags: in.Flags, AimX: in.AttackDirX, AimY: in.AttackDirY, MoveX: in.MoveDirX, MoveY: in.MoveDirY}
}

type RecordedHit struct {
	Attacker uint32  `json:"attacker"`
	Target   uint32  `json:"target"`
	Damage   float32 `json:"damage"`
	Killed   bool    `json:"killed,omitempty"`
}

type TickLogEntry struct {
	Tick   uint64          `json:"tick"`
	Joins  []RecordedJoin  `json:"joins,omitempty"`
	Leaves []uint32        `json:"leaves,omitempty"`
	Inputs []RecordedInput `json:"inputs,omitempty"`
	Hits   []RecordedHit   `json:"hits,omitempty"`
	Digest string          `json:"digest,omitempty"`
}

// TickLogger receives one entry per tick that had any activity or carries
// a digest.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// Envelope rebuilds the input for replay.
func (in RecordedInput) Envelope() InputEnvelope {
	return InputEnvelope{
		ID:    ecs.NetworkID(in.ID),
		Input: protocol.PlayerInput{Flags: in.Flags, AttackDirX: in.AimX, AttackDirY: in.AimY, MoveDirX: in.MoveX, MoveDirY: in.MoveY},
	}
}
