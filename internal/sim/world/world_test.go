package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/gameconfig"
	"mmoarena.ai/internal/sim/physics"
	"mmoarena.ai/internal/sim/physics/physicstest"
	"mmoarena.ai/internal/sim/terrain"
	"mmoarena.ai/internal/sim/tuning"
)

func testWorld(t *testing.T, cfg *gameconfig.Config, tun tuning.Tuning, backend physics.Backend) *World {
	t.Helper()
	if cfg == nil {
		cfg = gameconfig.Default()
	}
	w, err := New(cfg, tun, Options{
		Backend:   backend,
		Heightmap: terrain.NewProcedural(33, cfg.World.Width, cfg.World.Height),
	})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func join(t *testing.T, w *World, name string, class int) ecs.NetworkID {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	w.Step([]JoinRequest{{Name: name, Class: class, Resp: resp}}, nil, nil)
	r := <-resp
	if r.Err != nil {
		t.Fatalf("join %s: %v", name, r.Err)
	}
	return r.ID
}

func countStates(states []protocol.NetEntityState, keep func(protocol.NetEntityState) bool) int {
	n := 0
	for _, s := range states {
		if keep(s) {
			n++
		}
	}
	return n
}

func TestDeterminism_SameBatchesSameDigest(t *testing.T) {
	tun := tuning.Defaults()
	tun.Seed = 42
	w1 := testWorld(t, nil, tun, nil)
	w2 := testWorld(t, nil, tun, nil)
	if w1.StateDigest() != w2.StateDigest() {
		t.Fatalf("initial digests differ")
	}

	script := func(tick int) ([]JoinRequest, []ecs.NetworkID, []InputEnvelope) {
		switch {
		case tick == 0:
			return []JoinRequest{{Name: "a", Class: 0}, {Name: "b", Class: 1}}, nil, nil
		case tick == 150:
			return nil, []ecs.NetworkID{ecs.NetworkID(1 << 20)}, nil
		}
		return nil, nil, nil
	}

	var ids []ecs.NetworkID
	for tick := 0; tick < 240; tick++ {
		joins, leaves, _ := script(tick)
		r1 := w1.Step(joins, leaves, inputsFor(ids, tick))
		r2 := w2.Step(joins, leaves, inputsFor(ids, tick))
		if tick == 0 {
			for _, st := range r1.Joined {
				ids = append(ids, ecs.NetworkID(st.ID))
			}
			if len(r2.Joined) != len(r1.Joined) || r2.Joined[0].ID != r1.Joined[0].ID {
				t.Fatalf("joined ids diverge")
			}
		}
		if d1, d2 := w1.StateDigest(), w2.StateDigest(); d1 != d2 {
			t.Fatalf("tick %d: digest %s != %s", tick, d1, d2)
		}
	}
	if w1.CurrentTick() != 240 {
		t.Fatalf("tick=%d", w1.CurrentTick())
	}
}

func inputsFor(ids []ecs.NetworkID, tick int) []InputEnvelope {
	var out []InputEnvelope
	for i, id := range ids {
		in := protocol.PlayerInput{MoveDirX: 1, AttackDirX: 1}
		if i%2 == 1 {
			in = protocol.PlayerInput{MoveDirY: -1, AttackDirY: -1}
		}
		if tick%20 == 0 {
			in.Flags |= protocol.InputAttacking
		}
		out = append(out, InputEnvelope{ID: id, Input: in})
	}
	return out
}

func TestRemove_BodyCountReturnsToBaseline(t *testing.T) {
	fake := physicstest.NewFake()
	w := testWorld(t, nil, tuning.Defaults(), fake)
	baseline := fake.BodyCount()
	if baseline == 0 || baseline != w.BodyCount() {
		t.Fatalf("baseline fake=%d bridge=%d", baseline, w.BodyCount())
	}

	id := join(t, w, "p", 0)
	if fake.BodyCount() != baseline+1 {
		t.Fatalf("player body not created: %d", fake.BodyCount())
	}
	w.Step(nil, []ecs.NetworkID{id}, nil)
	if fake.BodyCount() != baseline {
		t.Fatalf("leak: %d bodies, baseline %d", fake.BodyCount(), baseline)
	}
	if _, ok := w.Store().Lookup(id); ok {
		t.Fatalf("entity still alive")
	}
	if _, ok := w.Grid().Kind(id); ok {
		t.Fatalf("grid still holds %d", id)
	}
	if w.Players() != 0 {
		t.Fatalf("players=%d", w.Players())
	}
}

func TestCreatePlayer_ServerFull(t *testing.T) {
	tun := tuning.Defaults()
	tun.Limits.MaxClients = 1
	w := testWorld(t, nil, tun, physicstest.NewFake())
	join(t, w, "first", 0)

	resp := make(chan JoinResponse, 1)
	res := w.Step([]JoinRequest{{Name: "second", Resp: resp}}, nil, nil)
	r := <-resp
	if !errors.Is(r.Err, ErrServerFull) || r.ID != 0 {
		t.Fatalf("resp=%+v", r)
	}
	if len(res.Joined) != 0 {
		t.Fatalf("joined=%d", len(res.Joined))
	}
}

func TestCreatePlayer_DefaultsNameAndClampsClass(t *testing.T) {
	cfg := gameconfig.Default()
	w := testWorld(t, cfg, tuning.Defaults(), physicstest.NewFake())
	id, err := w.CreatePlayer("   ", 99)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	st, ok := w.State(id)
	if !ok {
		t.Fatalf("no state")
	}
	last := len(cfg.Classes) - 1
	if st.Name != "Player" || int(st.PlayerClass) != last {
		t.Fatalf("state=%+v", st)
	}
	cls := cfg.Classes[last]
	if st.Health != cls.Health || st.Speed != cls.Speed || st.ShowsReticle != cls.ShowsReticle || st.ConeAngle != cls.ConeAngle {
		t.Fatalf("class stats not applied: %+v", st)
	}
	cx, cz := cfg.TownCenter()
	if st.X < cx-50 || st.X > cx+50 || st.Z < cz-50 || st.Z > cz+50 {
		t.Fatalf("spawn (%v,%v) not near center", st.X, st.Z)
	}
}

func TestSpawnTown_WallsTowersAndNPCs(t *testing.T) {
	cfg := gameconfig.Default()
	cfg.Town.Buildings = []gameconfig.BuildingConfig{{Type: "inn", X: 10, Y: 20, Rotation: 90, TargetSize: 150, Name: "Inn"}}
	cfg.Town.NPCs = []gameconfig.TownNPCConfig{
		{Type: "guard", X: 0, Y: 100, Name: "G"},
		{Type: "villager", X: 50, Y: 0, Name: "V", Wanders: true},
	}
	w := testWorld(t, cfg, tuning.Defaults(), physicstest.NewFake())
	states := w.States()

	// 26 positions per side from -440 to 440 step 35; the gate drops -20 and 15.
	logs := countStates(states, func(s protocol.NetEntityState) bool {
		return s.Type == protocol.EntityBuilding && s.BuildingType == protocol.BuildingWoodenLog
	})
	if logs != 24*3+26 {
		t.Fatalf("logs=%d", logs)
	}
	towers := countStates(states, func(s protocol.NetEntityState) bool {
		return s.Type == protocol.EntityBuilding && s.BuildingType == protocol.BuildingLogTower
	})
	if towers != 4 {
		t.Fatalf("towers=%d", towers)
	}

	cx, cz := cfg.TownCenter()
	var inn protocol.NetEntityState
	for _, s := range states {
		if s.Type == protocol.EntityBuilding && s.BuildingType == protocol.BuildingInn {
			inn = s
		}
	}
	if inn.X != cx+10 || inn.Z != cz+20 || inn.ModelName != "inn" || inn.TargetSize != 150 || inn.Color != 0xFFBB9977 {
		t.Fatalf("inn=%+v", inn)
	}

	s := w.Store()
	var wanderers, statics int
	s.Each(ecs.Signature(ecs.TagTownNPC), func(e ecs.Entity) {
		if s.TownAI.Has(e) {
			wanderers++
			if s.RigidBody.MustGet(e).Kind != ecs.BodyDynamic {
				t.Fatalf("wanderer not dynamic")
			}
		}
		if s.HasBit(e, ecs.TagStatic) {
			statics++
		}
	})
	if wanderers != 1 || statics != 1 {
		t.Fatalf("wanderers=%d statics=%d", wanderers, statics)
	}
}

func TestSpawnMonsters_OutsideSafeRing(t *testing.T) {
	cfg := gameconfig.Default()
	w := testWorld(t, cfg, tuning.Defaults(), physicstest.NewFake())
	cx, cz := cfg.TownCenter()
	keep := cfg.Town.SafeZoneRadius + 100

	n := 0
	for _, s := range w.States() {
		if s.Type != protocol.EntityNPC {
			continue
		}
		n++
		dx, dz := s.X-cx, s.Z-cz
		if dx*dx+dz*dz < keep*keep {
			t.Fatalf("monster %d inside safe ring at (%v,%v)", s.ID, s.X, s.Z)
		}
		if s.X < 100 || s.X > cfg.World.Width-100 || s.Z < 100 || s.Z > cfg.World.Height-100 {
			t.Fatalf("monster %d out of bounds", s.ID)
		}
		if s.Health != cfg.Monster.Health || s.AttackRange != cfg.Monster.AttackRange {
			t.Fatalf("monster stats %+v", s)
		}
	}
	if n != cfg.Monster.Count {
		t.Fatalf("monsters=%d want %d", n, cfg.Monster.Count)
	}
}

func TestSpawnEnvironment_IndependentOfWorldSeed(t *testing.T) {
	a := tuning.Defaults()
	b := tuning.Defaults()
	b.Seed = 999
	wa := testWorld(t, nil, a, physicstest.NewFake())
	wb := testWorld(t, nil, b, physicstest.NewFake())

	env := func(w *World) []protocol.NetEntityState {
		var out []protocol.NetEntityState
		for _, s := range w.States() {
			if s.Type == protocol.EntityEnvironment {
				out = append(out, s)
			}
		}
		return out
	}
	ea, eb := env(wa), env(wb)
	if len(ea) == 0 || len(ea) != len(eb) {
		t.Fatalf("environment counts %d vs %d", len(ea), len(eb))
	}
	rocks := 0
	for i := range ea {
		if ea[i].X != eb[i].X || ea[i].Z != eb[i].Z || ea[i].EnvironmentType != eb[i].EnvironmentType {
			t.Fatalf("prop %d differs", i)
		}
		if !gameconfig.IsTree(ea[i].EnvironmentType) {
			rocks++
			if ea[i].Color != 0xFF666666 {
				t.Fatalf("rock color %#x", ea[i].Color)
			}
		}
	}
	if rocks != 150 {
		t.Fatalf("rocks=%d", rocks)
	}
}

func TestApplyInput_MovesPlayerAndMirrorsAim(t *testing.T) {
	w := testWorld(t, nil, tuning.Defaults(), physicstest.NewFake())
	id := join(t, w, "mover", 0)
	start, _ := w.State(id)

	in := protocol.PlayerInput{MoveDirX: 1, AttackDirX: 3, AttackDirY: 4}
	w.Step(nil, nil, []InputEnvelope{{ID: id, Input: in}})
	st, _ := w.State(id)
	if st.AttackDirX != 3 || st.AttackDirY != 4 {
		t.Fatalf("aim not mirrored: %v,%v", st.AttackDirX, st.AttackDirY)
	}
	idle := protocol.PlayerInput{MoveDirX: 1}
	w.Step(nil, nil, []InputEnvelope{{ID: id, Input: idle}})
	if st, _ = w.State(id); st.AttackDirX != 3 || st.AttackDirY != 4 {
		t.Fatalf("idle input reset aim: %v,%v", st.AttackDirX, st.AttackDirY)
	}
	for i := 0; i < 58; i++ {
		w.Step(nil, nil, nil)
	}
	st, _ = w.State(id)
	moved := st.X - start.X
	if moved < 150 || moved > 250 {
		t.Fatalf("moved %v in one second", moved)
	}
	if st.Y != w.HeightAt(st.X, st.Z) {
		t.Fatalf("not ground locked: y=%v", st.Y)
	}
	if w.ApplyInput(12345678, in) {
		t.Fatalf("input for unknown id accepted")
	}
}

type recordingLogger struct{ entries []TickLogEntry }

func (r *recordingLogger) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestStep_JournalAndHooks(t *testing.T) {
	fake := physicstest.NewFake()
	rec := &recordingLogger{}
	tun := tuning.Defaults()
	tun.Journal.DigestEveryTicks = 2
	w, err := New(gameconfig.Default(), tun, Options{
		Backend:    fake,
		Heightmap:  terrain.NewProcedural(33, 8000, 8000),
		TickLogger: rec,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var hooked []TickResult
	w.SetTickHook(func(r TickResult) { hooked = append(hooked, r) })

	id := join(t, w, "j", 0)
	var monster ecs.NetworkID
	for _, s := range w.States() {
		if s.Type == protocol.EntityNPC {
			monster = ecs.NetworkID(s.ID)
			break
		}
	}
	fake.Emit(physics.Contact{A: uint32(id), B: uint32(monster)})
	w.Step(nil, nil, nil)

	if len(hooked) != 2 || hooked[0].Tick != 1 || len(hooked[0].Joined) != 1 {
		t.Fatalf("hooked=%+v", hooked)
	}
	if len(rec.entries) != 2 || len(rec.entries[0].Joins) != 1 || rec.entries[1].Digest == "" {
		t.Fatalf("journal=%+v", rec.entries)
	}
	m := w.Metrics()
	if m.Tick != 2 || m.Players != 1 || m.PlayerNPCContacts != 1 || m.NPCs != 10 {
		t.Fatalf("metrics=%+v", m)
	}
}

func TestRun_ServesJoinsUntilCancelled(t *testing.T) {
	w := testWorld(t, nil, tuning.Defaults(), physicstest.NewFake())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	resp := make(chan JoinResponse, 1)
	if !w.Join(JoinRequest{Name: "runner", Resp: resp}) {
		t.Fatalf("join mailbox full")
	}
	select {
	case r := <-resp:
		if r.Err != nil || r.ID == 0 {
			t.Fatalf("resp=%+v", r)
		}
		w.Leave(r.ID)
	case <-time.After(2 * time.Second):
		t.Fatalf("no join response")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}
