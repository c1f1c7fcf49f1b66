package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/session"
	"mmoarena.ai/internal/transport/quic"
	"mmoarena.ai/internal/transport/ws"
)

func main() {
	var (
		addr     = flag.String("addr", "localhost:7777", "tcp server address")
		wsURL    = flag.String("ws", "", "websocket url, e.g. ws://localhost:8080/v1/ws (overrides -addr)")
		quicAddr = flag.String("quic", "", "quic server address (overrides -addr)")
		name     = flag.String("name", "bot", "player name prefix")
		class    = flag.Int("class", -1, "class index (-1 picks at random)")
		bots     = flag.Int("n", 1, "number of bots")
		rate     = flag.Int("input_hz", 20, "inputs per second per bot")
		duration = flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	dial := func(ctx context.Context) (session.Conn, error) {
		switch {
		case *wsURL != "":
			return ws.Dial(ctx, *wsURL)
		case *quicAddr != "":
			return quic.Dial(ctx, *quicAddr, nil)
		default:
			var d net.Dialer
			return d.DialContext(ctx, "tcp", *addr)
		}
	}

	var total stats
	var wg sync.WaitGroup
	for i := 0; i < *bots; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &bot{
				name:   fmt.Sprintf("%s%d", *name, i),
				class:  *class,
				period: time.Second / time.Duration(max(1, *rate)),
				rng:    rand.New(rand.NewSource(time.Now().UnixNano() + int64(i))),
				stats:  &total,
				log:    logger,
			}
			conn, err := dial(ctx)
			if err != nil {
				logger.Printf("%s: dial: %v", b.name, err)
				return
			}
			if err := b.run(ctx, conn); err != nil && ctx.Err() == nil {
				logger.Printf("%s: %v", b.name, err)
			}
		}(i)
	}
	wg.Wait()
	total.print(logger)
}

type stats struct {
	mu     sync.Mutex
	counts map[protocol.MessageType]uint64
	bytes  atomic.Uint64
}

func (s *stats) add(t protocol.MessageType, n int) {
	s.mu.Lock()
	if s.counts == nil {
		s.counts = map[protocol.MessageType]uint64{}
	}
	s.counts[t]++
	s.mu.Unlock()
	s.bytes.Add(uint64(protocol.HeaderSize + n))
}

func (s *stats) print(logger *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]protocol.MessageType, 0, len(s.counts))
	for t := range s.counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		logger.Printf("%-20s %d", t, s.counts[t])
	}
	logger.Printf("received %d bytes", s.bytes.Load())
}

type bot struct {
	name   string
	class  int
	period time.Duration
	rng    *rand.Rand
	stats  *stats
	log    *log.Logger

	id atomic.Uint32

	wmu  sync.Mutex
	conn session.Conn
}

// write serializes frames; the WebSocket adapter allows one writer at a time.
func (b *bot) write(frame []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_, err := b.conn.Write(frame)
	return err
}

func (b *bot) run(ctx context.Context, conn session.Conn) error {
	b.conn = conn
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := b.write(protocol.Connect{Name: b.name}.Encode()); err != nil {
		return err
	}

	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop(conn) }()

	ticker := time.NewTicker(b.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = b.write(protocol.Frame(protocol.TypeDisconnect, nil))
			return nil
		case err := <-readErr:
			return err
		case <-ticker.C:
			if b.id.Load() == 0 {
				continue
			}
			if err := b.write(b.randomInput().Encode()); err != nil {
				return err
			}
		}
	}
}

func (b *bot) readLoop(conn session.Conn) error {
	for {
		t, payload, err := protocol.ReadFrame(conn, protocol.DefaultMaxPayload)
		if err != nil {
			return err
		}
		b.stats.add(t, len(payload))
		switch t {
		case protocol.TypeClassList:
			classes, err := protocol.DecodeClassList(payload)
			if err != nil || len(classes) == 0 {
				return fmt.Errorf("class list: %v", err)
			}
			idx := b.class
			if idx < 0 || idx >= len(classes) {
				idx = b.rng.Intn(len(classes))
			}
			b.log.Printf("%s: selecting %s", b.name, classes[idx].Name)
			if err := b.write(protocol.ClassSelect{Index: uint8(idx)}.Encode()); err != nil {
				return err
			}
		case protocol.TypeConnectionAccepted:
			id, _ := protocol.DecodeConnectionAccepted(payload)
			if id != 0 {
				b.id.Store(id)
				b.log.Printf("%s: spawned as %d", b.name, id)
			}
		case protocol.TypeConnectionRejected:
			reason, _ := protocol.DecodeConnectionRejected(payload)
			return fmt.Errorf("rejected: %s", reason)
		}
	}
}

// randomInput wanders and swings at whatever is ahead.
func (b *bot) randomInput() protocol.PlayerInput {
	angle := b.rng.Float64() * 2 * math.Pi
	dx, dy := float32(math.Cos(angle)), float32(math.Sin(angle))
	in := protocol.PlayerInput{AttackDirX: dx, AttackDirY: dy, MoveDirX: dx, MoveDirY: dy}
	if dx > 0 {
		in.Flags |= protocol.InputRight
	} else {
		in.Flags |= protocol.InputLeft
	}
	if dy > 0 {
		in.Flags |= protocol.InputDown
	} else {
		in.Flags |= protocol.InputUp
	}
	if b.rng.Intn(4) == 0 {
		in.Flags |= protocol.InputAttacking
	}
	return in
}
