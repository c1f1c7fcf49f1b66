package world

import (
	"time"

	"mmoarena.ai/internal/sim/ecs"
)

// WorldMetrics is a read-only view of runtime signals. It is published by
// the simulation goroutine after every tick and safe to read from any
// goroutine.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Entities int `json:"entities"`
	Players  int `json:"players"`
	NPCs     int `json:"npcs"`
	TownNPCs int `json:"town_npcs"`
	Static   int `json:"static"`

	Bodies        int         `json:"bodies"`
	BodyFailures  int         `json:"body_failures"`
	GridCells     int         `json:"grid_cells"`
	QueueDepths   QueueDepths `json:"queue_depths"`
	DroppedInputs uint64      `json:"dropped_inputs"`

	Contacts          uint64 `json:"contacts"`
	PlayerNPCContacts uint64 `json:"player_npc_contacts"`
	Hits              uint64 `json:"hits"`
	Kills             uint64 `json:"kills"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) publishMetrics(step time.Duration) {
	s := w.store
	m := WorldMetrics{
		Tick:     w.tick.Load(),
		Entities: s.Len(),
		Players:  w.players,
		NPCs:     count(s, ecs.TagNPC),
		TownNPCs: count(s, ecs.TagTownNPC),
		Static:   count(s, ecs.TagStatic),

		Bodies:       w.bridge.BodyCount(),
		BodyFailures: w.bridge.CreateFailures(),
		GridCells:    w.grid.CellCount(),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		DroppedInputs: w.counters.droppedInputs.Load(),

		Contacts:          w.counters.contacts,
		PlayerNPCContacts: w.counters.playerNPCContacts,
		Hits:              w.counters.hits,
		Kills:             w.counters.kills,

		StepMS: float64(step.Microseconds()) / 1000,
	}
	w.metrics.Store(m)
}

func count(s *ecs.Store, tag uint32) int {
	n := 0
	s.Each(ecs.Signature(tag), func(ecs.Entity) { n++ })
	return n
}
