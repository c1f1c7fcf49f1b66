// Package world owns the authoritative simulation: the entity store, the
// physics bridge, the spatial grid and the per-tick system order. All of it
// runs on one goroutine; other goroutines talk to it through mailboxes.
package world

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/gameconfig"
	"mmoarena.ai/internal/sim/mathx"
	"mmoarena.ai/internal/sim/physics"
	"mmoarena.ai/internal/sim/spatial"
	"mmoarena.ai/internal/sim/systems"
	"mmoarena.ai/internal/sim/terrain"
	"mmoarena.ai/internal/sim/tuning"
)

type Options struct {
	// Backend defaults to physics.NewBuiltin(tuning max_bodies).
	Backend physics.Backend
	// Heightmap defaults to the procedural terrain for the configured world.
	Heightmap  *terrain.Heightmap
	Logger     *log.Logger
	TickLogger TickLogger
}

type World struct {
	cfg    *gameconfig.Config
	tun    tuning.Tuning
	logger *log.Logger

	store  *ecs.Store
	bridge *physics.Bridge
	grid   *spatial.Grid
	hm     *terrain.Heightmap
	rng    *mathx.Rand
	env    systems.Env

	tickLogger TickLogger
	onTick     func(TickResult)

	tick    atomic.Uint64
	players int

	join  chan JoinRequest
	leave chan ecs.NetworkID
	inbox chan InputEnvelope

	stop     chan struct{}
	stopOnce sync.Once

	metrics  atomic.Value
	counters counters
}

type counters struct {
	playerNPCContacts uint64
	contacts          uint64
	hits              uint64
	kills             uint64
	droppedInputs     atomic.Uint64
}

func New(cfg *gameconfig.Config, tun tuning.Tuning, opts Options) (*World, error) {
	if cfg == nil {
		cfg = gameconfig.Default()
	}
	if err := tun.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	hm := opts.Heightmap
	if hm == nil {
		hm = terrain.NewProcedural(cfg.World.HeightmapResolution, cfg.World.Width, cfg.World.Height)
	}
	backend := opts.Backend
	if backend == nil {
		backend = physics.NewBuiltin(tun.Limits.MaxBodies)
	}

	w := &World{
		cfg:        cfg,
		tun:        tun,
		logger:     logger,
		store:      ecs.NewStore(),
		grid:       spatial.NewGrid(tun.Network.GridCellSize),
		hm:         hm,
		rng:        mathx.NewRand(tun.Seed),
		tickLogger: opts.TickLogger,
		join:       make(chan JoinRequest, tun.Limits.InboxQueue),
		leave:      make(chan ecs.NetworkID, tun.Limits.InboxQueue),
		inbox:      make(chan InputEnvelope, tun.Limits.InboxQueue),
		stop:       make(chan struct{}),
	}
	w.bridge = physics.NewBridge(backend, w.HeightAt, logger)
	w.bridge.OnContact(w.handleContact)

	cx, cz := cfg.TownCenter()
	w.env = systems.Env{
		Store:       w.store,
		DT:          tun.DT(),
		WorldWidth:  cfg.World.Width,
		WorldHeight: cfg.World.Height,
		SafeCenterX: cx,
		SafeCenterZ: cz,
		SafeRadius:  cfg.Town.SafeZoneRadius,
		MonsterSize: cfg.Monster.Size,
		Height:      w.HeightAt,
		Rand:        w.rng,
	}

	w.spawnTown()
	w.spawnMonsters()
	w.spawnEnvironment()
	w.bridge.SyncNewBodies(w.store)
	w.refreshGrid()
	w.publishMetrics(0)

	logger.Printf("world: spawned %d entities, %d bodies (%d refused)", w.store.Len(), w.bridge.BodyCount(), w.bridge.CreateFailures())
	return w, nil
}

// HeightAt samples the terrain.
func (w *World) HeightAt(x, z float32) float32 { return w.hm.HeightAt(x, z) }

func (w *World) Heightmap() *terrain.Heightmap   { return w.hm }
func (w *World) Config() *gameconfig.Config      { return w.cfg }
func (w *World) Tuning() tuning.Tuning           { return w.tun }
func (w *World) CurrentTick() uint64             { return w.tick.Load() }
func (w *World) Players() int                    { return w.players }
func (w *World) Store() *ecs.Store               { return w.store }
func (w *World) Grid() *spatial.Grid             { return w.grid }
func (w *World) BodyCount() int                  { return w.bridge.BodyCount() }
func (w *World) SetTickHook(fn func(TickResult)) { w.onTick = fn }

// Join posts a spawn request without blocking. It reports false when the
// mailbox is full.
func (w *World) Join(req JoinRequest) bool {
	select {
	case w.join <- req:
		return true
	default:
		return false
	}
}

// Leave posts a removal. It blocks until the simulation accepts it or the
// world stops, so a disconnect is never lost.
func (w *World) Leave(id ecs.NetworkID) {
	select {
	case w.leave <- id:
	case <-w.stop:
	}
}

// Input posts player input; a full mailbox drops it.
func (w *World) Input(env InputEnvelope) bool {
	select {
	case w.inbox <- env:
		return true
	default:
		w.counters.droppedInputs.Add(1)
		return false
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

func (w *World) handleContact(c physics.Contact) {
	w.counters.contacts++
	a, okA := w.store.Lookup(ecs.NetworkID(c.A))
	b, okB := w.store.Lookup(ecs.NetworkID(c.B))
	if !okA || !okB {
		return
	}
	s := w.store
	if (s.HasBit(a, ecs.TagPlayer) && s.HasBit(b, ecs.TagNPC)) || (s.HasBit(a, ecs.TagNPC) && s.HasBit(b, ecs.TagPlayer)) {
		w.counters.playerNPCContacts++
	}
}
