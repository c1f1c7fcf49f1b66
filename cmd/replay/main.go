package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	persistlog "mmoarena.ai/internal/persistence/log"
	"mmoarena.ai/internal/persistence/terraincache"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/gameconfig"
	"mmoarena.ai/internal/sim/tuning"
	"mmoarena.ai/internal/sim/world"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory holding journal/")
		journalDir = flag.String("journal", "", "journal directory (default: <data>/journal)")
		configDir  = flag.String("configs", "./configs", "config directory the server ran with")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		verify     = flag.Bool("verify", true, "re-simulate every run and compare state digests")
	)
	flag.Parse()

	dir := strings.TrimSpace(*journalDir)
	if dir == "" {
		dir = persistlog.JournalDir(*dataDir)
	}
	runs, err := loadRuns(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no journal entries in", dir)
		os.Exit(1)
	}
	for i, r := range runs {
		summarize(os.Stdout, i, r)
	}
	if !*verify {
		return
	}

	cfg, err := gameconfig.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if errors.Is(err, fs.ErrNotExist) {
		tune, err = tuning.Defaults(), nil
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	hm, _, err := terraincache.Load(*dataDir, cfg.World.HeightmapResolution, cfg.World.Width, cfg.World.Height)
	if err != nil {
		fmt.Fprintln(os.Stderr, "terrain cache:", err)
	}

	for i, r := range runs {
		w, err := world.New(cfg, tune, world.Options{Heightmap: hm})
		if err != nil {
			fmt.Fprintln(os.Stderr, "world:", err)
			os.Exit(1)
		}
		checked, err := replay(w, r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run %d: %v\n", i, err)
			os.Exit(1)
		}
		fmt.Printf("run %d: replay ok, %d digests matched\n", i, checked)
	}
}

// loadRuns reads every journal file in order. A tick that does not increase
// starts a new run, as happens when the server restarts.
func loadRuns(dir string) ([][]world.TickLogEntry, error) {
	files, err := persistlog.Files(dir)
	if err != nil {
		return nil, err
	}
	var runs [][]world.TickLogEntry
	var cur []world.TickLogEntry
	for _, path := range files {
		err := persistlog.ReadTicks(path, func(e world.TickLogEntry) error {
			if len(cur) > 0 && e.Tick <= cur[len(cur)-1].Tick {
				runs = append(runs, cur)
				cur = nil
			}
			cur = append(cur, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs, nil
}

func summarize(out io.Writer, i int, run []world.TickLogEntry) {
	var joins, leaves, inputs, hits, kills, digests int
	for _, e := range run {
		joins += len(e.Joins)
		leaves += len(e.Leaves)
		inputs += len(e.Inputs)
		hits += len(e.Hits)
		for _, h := range e.Hits {
			if h.Killed {
				kills++
			}
		}
		if e.Digest != "" {
			digests++
		}
	}
	fmt.Fprintf(out, "run %d: ticks %d..%d entries=%d joins=%d leaves=%d inputs=%d hits=%d kills=%d digests=%d\n",
		i, run[0].Tick, run[len(run)-1].Tick, len(run), joins, leaves, inputs, hits, kills, digests)
}

// replay steps w through one run, feeding each recorded batch at its tick,
// and compares every recorded digest.
func replay(w *world.World, run []world.TickLogEntry) (int, error) {
	if w.CurrentTick() > run[0].Tick {
		return 0, fmt.Errorf("run starts at tick %d before world tick %d", run[0].Tick, w.CurrentTick())
	}
	checked := 0
	for _, e := range run {
		for w.CurrentTick() < e.Tick {
			w.Step(nil, nil, nil)
		}

		joins := make([]world.JoinRequest, 0, len(e.Joins))
		resps := make([]chan world.JoinResponse, 0, len(e.Joins))
		for _, j := range e.Joins {
			resp := make(chan world.JoinResponse, 1)
			resps = append(resps, resp)
			joins = append(joins, world.JoinRequest{Name: j.Name, Class: j.Class, Resp: resp})
		}
		leaves := make([]ecs.NetworkID, 0, len(e.Leaves))
		for _, id := range e.Leaves {
			leaves = append(leaves, ecs.NetworkID(id))
		}
		inputs := make([]world.InputEnvelope, 0, len(e.Inputs))
		for _, in := range e.Inputs {
			inputs = append(inputs, in.Envelope())
		}

		w.Step(joins, leaves, inputs)

		for i, resp := range resps {
			r := <-resp
			if r.Err != nil {
				return checked, fmt.Errorf("tick %d: join %q: %w", e.Tick, e.Joins[i].Name, r.Err)
			}
			if uint32(r.ID) != e.Joins[i].ID {
				return checked, fmt.Errorf("tick %d: join %q got id %d, journal has %d", e.Tick, e.Joins[i].Name, r.ID, e.Joins[i].ID)
			}
		}
		if e.Digest == "" {
			continue
		}
		if got := w.StateDigest(); got != e.Digest {
			return checked, fmt.Errorf("%w at tick %d: got=%s want=%s", errDigestMismatch, e.Tick, got, e.Digest)
		}
		checked++
	}
	return checked, nil
}

var errDigestMismatch = errors.New("digest mismatch")
