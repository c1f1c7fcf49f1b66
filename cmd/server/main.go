package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"

	persistlog "mmoarena.ai/internal/persistence/log"
	"mmoarena.ai/internal/persistence/terraincache"
	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/server"
	"mmoarena.ai/internal/sim/gameconfig"
	"mmoarena.ai/internal/sim/tuning"
	"mmoarena.ai/internal/sim/world"
	"mmoarena.ai/internal/transport/quic"
	"mmoarena.ai/internal/transport/tcp"
	"mmoarena.ai/internal/transport/ws"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory (terrain cache, journal)")
		httpAddr   = flag.String("ws", "", "http listen address for /v1/ws and /metrics (empty to disable)")
		quicAddr   = flag.String("quic", "", "quic listen address (empty to disable)")
		quicCert   = flag.String("quic_cert", "", "quic certificate file (default: self-signed)")
		quicKey    = flag.String("quic_key", "", "quic key file")
		mode       = flag.String("mode", "", "broadcast mode override: delta | full")
		journal    = flag.Bool("journal", false, "force the tick journal on")
		prof       = flag.String("profile", "", "write a cpu or mem profile to <data>/profile")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [port]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	port, err := parsePort(flag.Args())
	if err != nil {
		logger.Fatalf("%v", err)
	}

	if *prof != "" {
		p, err := startProfile(*prof, filepath.Join(*dataDir, "profile"))
		if err != nil {
			logger.Fatalf("profile: %v", err)
		}
		defer p.Stop()
	}

	cfg, err := gameconfig.Load(*configDir)
	if err != nil {
		logger.Fatalf("load configs: %v", err)
	}
	logDigests(logger, cfg.Digests)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *mode != "" {
		tune.BroadcastMode = strings.TrimSpace(*mode)
	}
	if *journal {
		tune.Journal.Enabled = true
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	hm, hit, err := terraincache.Load(*dataDir, cfg.World.HeightmapResolution, cfg.World.Width, cfg.World.Height)
	if err != nil {
		logger.Printf("terrain cache: %v", err)
	}
	logger.Printf("heightmap res=%d cached=%v", hm.Resolution, hit)

	opts := world.Options{Heightmap: hm, Logger: logger}
	if tune.Journal.Enabled {
		tickLog := persistlog.NewTickLogger(*dataDir)
		defer tickLog.Close()
		opts.TickLogger = tickLog
		logger.Printf("journal -> %s", persistlog.JournalDir(*dataDir))
	}

	w, err := world.New(cfg, tune, opts)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	srv := server.New(w, logger)

	ctx, cancel := signalContext()
	defer cancel()

	tcpLn, err := tcp.Listen(fmt.Sprintf(":%d", port), srv, logger)
	if err != nil {
		logger.Fatalf("tcp listen: %v", err)
	}
	go func() {
		if err := tcpLn.Serve(ctx); err != nil {
			logger.Printf("tcp: %v", err)
			cancel()
		}
	}()
	logger.Printf("tcp listening on %s", tcpLn.Addr())

	if *quicAddr != "" {
		tlsConf, err := quicTLS(*quicCert, *quicKey)
		if err != nil {
			logger.Fatalf("quic tls: %v", err)
		}
		qln, err := quic.Listen(*quicAddr, tlsConf, srv, logger)
		if err != nil {
			logger.Fatalf("quic listen: %v", err)
		}
		go func() {
			if err := qln.Serve(ctx); err != nil {
				logger.Printf("quic: %v", err)
			}
		}()
		logger.Printf("quic listening on %s", qln.Addr())
	}

	if *httpAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(200)
			_, _ = rw.Write([]byte("ok"))
		})
		mux.HandleFunc("/metrics", srv.MetricsHandler())
		mux.HandleFunc("/v1/state", srv.StateHandler())
		mux.HandleFunc(ws.Path, ws.NewServer(ctx, srv, logger).Handler())

		hs := &http.Server{
			Addr:              *httpAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			ctx2, cancel2 := context.WithTimeout(context.Background(), tune.Timeouts.Shutdown())
			defer cancel2()
			_ = hs.Shutdown(ctx2)
		}()
		go func() {
			if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("http: %v", err)
				cancel()
			}
		}()
		logger.Printf("http listening on %s (ws %s)", *httpAddr, ws.Path)
	}

	logger.Printf("world %gx%g tick_rate=%d broadcast=%s entities=%d", cfg.World.Width, cfg.World.Height, tune.TickRateHz, tune.BroadcastMode, w.Metrics().Entities)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("world stopped: %v", err)
	}
	logger.Printf("stopped at tick %d", w.CurrentTick())
}

// parsePort reads the single optional positional argument.
func parsePort(args []string) (uint16, error) {
	switch len(args) {
	case 0:
		return protocol.DefaultPort, nil
	case 1:
		p, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil || p == 0 {
			return 0, fmt.Errorf("invalid port %q", args[0])
		}
		return uint16(p), nil
	default:
		return 0, fmt.Errorf("expected at most one positional port, got %d args", len(args))
	}
}

func startProfile(kind, dir string) (interface{ Stop() }, error) {
	var mode func(*profile.Profile)
	switch kind {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	default:
		return nil, fmt.Errorf("unknown profile %q (cpu | mem)", kind)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return profile.Start(mode, profile.ProfilePath(dir), profile.NoShutdownHook), nil
}

func quicTLS(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" {
		return quic.SelfSignedTLS()
	}
	return quic.LoadTLS(certFile, keyFile)
}

func logDigests(logger *log.Logger, digests map[string]string) {
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		logger.Printf("config %s sha256=%s", name, digests[name][:12])
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
