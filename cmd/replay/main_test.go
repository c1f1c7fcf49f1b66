package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	persistlog "mmoarena.ai/internal/persistence/log"
	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/sim/gameconfig"
	"mmoarena.ai/internal/sim/terrain"
	"mmoarena.ai/internal/sim/tuning"
	"mmoarena.ai/internal/sim/world"
)

func newWorld(t *testing.T, tl world.TickLogger) *world.World {
	t.Helper()
	cfg := gameconfig.Default()
	tun := tuning.Defaults()
	tun.Journal.DigestEveryTicks = 20
	w, err := world.New(cfg, tun, world.Options{
		Heightmap:  terrain.NewProcedural(33, cfg.World.Width, cfg.World.Height),
		TickLogger: tl,
	})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func record(t *testing.T, dataDir string) {
	t.Helper()
	tl := persistlog.NewTickLogger(dataDir)
	w := newWorld(t, tl)

	resp := make(chan world.JoinResponse, 1)
	w.Step([]world.JoinRequest{{Name: "alice", Class: 1, Resp: resp}}, nil, nil)
	id := (<-resp).ID
	for i := 0; i < 90; i++ {
		var inputs []world.InputEnvelope
		if i%3 == 0 {
			inputs = []world.InputEnvelope{{ID: id, Input: protocol.PlayerInput{
				Flags: protocol.InputRight | protocol.InputAttacking, AttackDirX: 1, MoveDirX: 1,
			}}}
		}
		w.Step(nil, nil, inputs)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}
}

func TestReplay_VerifiesRecordedDigests(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)

	runs, err := loadRuns(persistlog.JournalDir(dir))
	if err != nil {
		t.Fatalf("loadRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0][0].Tick != 0 || len(runs[0][0].Joins) != 1 {
		t.Fatalf("first entry = %+v", runs[0][0])
	}

	var out bytes.Buffer
	summarize(&out, 0, runs[0])
	if !strings.Contains(out.String(), "joins=1") || !strings.Contains(out.String(), "digests=4") {
		t.Fatalf("summary = %q", out.String())
	}

	checked, err := replay(newWorld(t, nil), runs[0])
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 4 {
		t.Fatalf("checked = %d, want 4", checked)
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)
	runs, err := loadRuns(persistlog.JournalDir(dir))
	if err != nil {
		t.Fatalf("loadRuns: %v", err)
	}
	run := runs[0]
	// Dropping the recorded inputs changes where the player ends up.
	for i := range run {
		run[i].Inputs = nil
	}
	if _, err := replay(newWorld(t, nil), run); !errors.Is(err, errDigestMismatch) {
		t.Fatalf("replay err = %v, want digest mismatch", err)
	}
}

func TestLoadRuns_SplitsOnRestart(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)
	record(t, dir)

	runs, err := loadRuns(persistlog.JournalDir(dir))
	if err != nil {
		t.Fatalf("loadRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	for i, r := range runs {
		if r[0].Tick != 0 {
			t.Fatalf("run %d starts at tick %d", i, r[0].Tick)
		}
	}
}
