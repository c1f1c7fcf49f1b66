package world

import (
	"context"
	"strings"
	"time"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/systems"
)

const defaultPlayerName = "Player"

// Run drives the world at the tuned tick rate until ctx is done or Stop is
// called. Requests that arrive between ticks are applied at the next tick
// boundary in arrival order.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tun.TickInterval())
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []ecs.NetworkID
	var pendingInputs []InputEnvelope

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingInputs = append(pendingInputs, env)
		case <-ticker.C:
			w.Step(pendingJoins, pendingLeaves, pendingInputs)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingInputs = pendingInputs[:0]
		}
	}
}

// Step advances the world by one tick. Leaves are applied first, then
// joins, then inputs; after that the systems run in order: movement, AI,
// combat, physics. Replaying the same batches from the same config and seed
// yields the same state digests.
func (w *World) Step(joins []JoinRequest, leaves []ecs.NetworkID, inputs []InputEnvelope) TickResult {
	start := time.Now()
	tick := w.tick.Load()
	entry := TickLogEntry{Tick: tick}
	var res TickResult

	for _, id := range leaves {
		if w.Remove(id) {
			res.Left = append(res.Left, id)
			entry.Leaves = append(entry.Leaves, uint32(id))
		}
	}

	for _, req := range joins {
		id, err := w.CreatePlayer(req.Name, req.Class)
		resp := JoinResponse{ID: id, Err: err}
		if err == nil {
			e, _ := w.store.Lookup(id)
			resp.State = w.netState(e)
			res.Joined = append(res.Joined, resp.State)
			entry.Joins = append(entry.Joins, RecordedJoin{ID: uint32(id), Name: resp.State.Name, Class: int(resp.State.PlayerClass)})
		}
		if req.Resp != nil {
			select {
			case req.Resp <- resp:
			default:
			}
		}
	}

	for _, env := range inputs {
		if w.ApplyInput(env.ID, env.Input) {
			entry.Inputs = append(entry.Inputs, recordInput(env))
		}
	}

	w.bridge.SyncNewBodies(w.store)
	systems.Movement(&w.env)
	systems.AI(&w.env, w.grid)
	res.Combat = systems.Combat(&w.env)
	w.bridge.SyncNewBodies(w.store)
	w.bridge.Step(w.store, w.env.DT)
	w.refreshGrid()

	for _, ev := range res.Combat {
		w.counters.hits++
		if ev.Killed {
			w.counters.kills++
		}
		entry.Hits = append(entry.Hits, RecordedHit{Attacker: uint32(ev.Attacker), Target: uint32(ev.Target), Damage: ev.Damage, Killed: ev.Killed})
	}

	next := tick + 1
	w.tick.Store(next)
	res.Tick = next
	res.Now = float64(next) * float64(w.env.DT)
	res.States = w.States()

	if w.tickLogger != nil {
		if every := w.tun.Journal.DigestEveryTicks; every > 0 && next%uint64(every) == 0 {
			entry.Digest = w.StateDigest()
		}
		if entry.Digest != "" || len(entry.Joins) > 0 || len(entry.Leaves) > 0 || len(entry.Inputs) > 0 || len(entry.Hits) > 0 {
			if err := w.tickLogger.WriteTick(entry); err != nil {
				w.logger.Printf("world: journal tick %d: %v", tick, err)
			}
		}
	}

	w.publishMetrics(time.Since(start))
	if w.onTick != nil {
		w.onTick(res)
	}
	return res
}

// CreatePlayer spawns a player. Names are trimmed; an empty name becomes
// "Player". The class index is clamped into range.
func (w *World) CreatePlayer(name string, class int) (ecs.NetworkID, error) {
	if w.players >= w.tun.Limits.MaxClients {
		return 0, ErrServerFull
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultPlayerName
	}
	e := w.spawnPlayer(name, class)
	w.players++
	id := w.store.NetID(e)
	w.logger.Printf("world: player %d %q joined", id, name)
	return id, nil
}

// Remove destroys an entity: its physics body first, then its grid entry,
// then the entity itself. Unknown ids are a no-op.
func (w *World) Remove(id ecs.NetworkID) bool {
	e, ok := w.store.Lookup(id)
	if !ok {
		return false
	}
	player := w.store.HasBit(e, ecs.TagPlayer)
	w.bridge.Destroy(id)
	w.grid.Remove(id)
	w.store.Destroy(e)
	if player {
		w.players--
		w.logger.Printf("world: player %d left", id)
	}
	return true
}

// ApplyInput stores the latest input for a live player. A non-zero aim is
// mirrored into AttackDirection so clients see where the player faces
// between attacks; an idle (0,0) aim keeps the last direction.
func (w *World) ApplyInput(id ecs.NetworkID, in protocol.PlayerInput) bool {
	s := w.store
	e, ok := s.Lookup(id)
	if !ok || !s.HasBit(e, ecs.TagPlayer) {
		return false
	}
	st, ok := s.Input.Get(e)
	if !ok {
		return false
	}
	*st = ecs.InputState{
		MoveX:     in.MoveDirX,
		MoveY:     in.MoveDirY,
		AimX:      in.AttackDirX,
		AimY:      in.AttackDirY,
		Flags:     in.Flags,
		Attacking: in.Attacking(),
	}
	if in.AttackDirX != 0 || in.AttackDirY != 0 {
		s.AttackDirection.Set(e, ecs.AttackDirection{X: in.AttackDirX, Y: in.AttackDirY})
	}
	return true
}

func (w *World) refreshGrid() {
	s := w.store
	s.Each(ecs.Signature(ecs.CTransform, ecs.CInfo), func(e ecs.Entity) {
		id := s.NetID(e)
		if s.HasBit(e, ecs.TagStatic) {
			if _, ok := w.grid.Kind(id); ok {
				return
			}
		}
		tr := s.Transform.MustGet(e)
		w.grid.Update(id, tr.X, tr.Z, s.Info.MustGet(e).Type)
	})
}
