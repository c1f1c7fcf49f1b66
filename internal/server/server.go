// Package server wires client sessions to the simulation: the connect and
// class-select handshake, input routing, and the per-tick broadcast that runs
// on the simulation goroutine.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mmoarena.ai/internal/netview"
	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/session"
	"mmoarena.ai/internal/sim/ecs"
	"mmoarena.ai/internal/sim/tuning"
	"mmoarena.ai/internal/sim/world"
)

var ErrTooManyConnections = errors.New("server: too many connections")

type client struct {
	sess *session.Session

	// Read goroutine only.
	name string
	resp chan world.JoinResponse

	// Simulation goroutine only.
	id   ecs.NetworkID
	view *netview.View
}

type Server struct {
	world *world.World
	tun   tuning.Tuning
	log   *log.Logger

	viewCfg netview.Config
	full    bool

	hello []byte
	chunk []byte

	mu       sync.Mutex
	sessions map[*session.Session]*client
	joining  []*client

	// Simulation goroutine only.
	spawned map[ecs.NetworkID]*client
	order   []ecs.NetworkID
	batch   []byte
	near    []protocol.NetEntityState

	spawnedCount atomic.Int64
	broadcasts   atomic.Uint64
	rejected     atomic.Uint64
	started      time.Time
}

// New registers the server's tick hook on w. w must not be running yet.
func New(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	tun := w.Tuning()
	cfg := w.Config()
	s := &Server{
		world:    w,
		tun:      tun,
		log:      logger,
		viewCfg:  netview.ConfigFromTuning(tun),
		full:     tun.BroadcastMode == "full",
		chunk:    w.Heightmap().EncodeChunk(),
		sessions: map[*session.Session]*client{},
		spawned:  map[ecs.NetworkID]*client{},
		started:  time.Now(),
	}

	var hello []byte
	hello = append(hello, protocol.EncodeConnectionAccepted(0)...)
	hello = append(hello, protocol.WorldConfig{
		Width:    cfg.World.Width,
		Height:   cfg.World.Height,
		TickRate: float32(tun.TickRateHz),
	}.Encode()...)
	hello = append(hello, s.chunk...)
	hello = append(hello, protocol.EncodeClassList(cfg.ClassInfos())...)
	s.hello = hello

	w.SetTickHook(s.onTick)
	return s
}

// Run drives the world until ctx is done, then disconnects every session.
func (s *Server) Run(ctx context.Context) error {
	err := s.world.Run(ctx)
	s.world.Stop()
	s.closeAll()
	return err
}

// Attach serves one client connection and blocks until it closes. Past
// limits.max_connections the client gets ConnectionRejected before any
// handshake state exists for it.
func (s *Server) Attach(ctx context.Context, conn session.Conn, remote string) error {
	sess := session.New(conn, s, session.Options{
		MaxPayload:   s.tun.Limits.MaxPayload,
		QueueSize:    s.tun.Limits.OutboundQueue,
		ReadIdle:     s.tun.Timeouts.ReadIdle(),
		WriteTimeout: s.tun.Timeouts.Write(),
		Remote:       remote,
		Logger:       s.log,
	})
	s.mu.Lock()
	full := len(s.sessions) >= s.tun.Limits.MaxConnections
	if !full {
		s.sessions[sess] = &client{sess: sess}
	}
	s.mu.Unlock()

	if full {
		s.rejected.Add(1)
		sess.Logf("rejected %s: %d connections open", remote, s.tun.Limits.MaxConnections)
		_ = sess.SendAndClose(protocol.EncodeConnectionRejected(protocol.RejectServerFull))
		_ = sess.Run(ctx)
		return ErrTooManyConnections
	}
	sess.Logf("connected from %s", remote)
	return sess.Run(ctx)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	all := make([]*session.Session, 0, len(s.sessions))
	for sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.Unlock()
	for _, sess := range all {
		_ = sess.SendAndClose(protocol.EncodeConnectionRejected(protocol.RejectShuttingDown))
	}
}

func (s *Server) lookup(sess *session.Session) *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sess]
}

// HandleFrame runs on the session's read goroutine.
func (s *Server) HandleFrame(sess *session.Session, t protocol.MessageType, payload []byte) {
	c := s.lookup(sess)
	if c == nil {
		return
	}
	switch t {
	case protocol.TypeConnect:
		s.handleConnect(c, payload)
	case protocol.TypeClassSelect:
		s.handleClassSelect(c, payload)
	case protocol.TypePlayerInput:
		if sess.State() != session.Spawned {
			return
		}
		in, err := protocol.DecodePlayerInput(payload)
		if err != nil {
			sess.Logf("drop input: %v", err)
			return
		}
		s.world.Input(world.InputEnvelope{ID: ecs.NetworkID(sess.Player()), Input: in})
	case protocol.TypeHeightmapRequest:
		if sess.State() == session.Connected {
			return
		}
		_ = sess.Send(s.chunk)
	case protocol.TypeDisconnect:
		sess.Close(nil)
	case protocol.TypePlayerAttack:
		// Attacks ride on PlayerInput.
	default:
		sess.Logf("unexpected %s (%d bytes)", t, len(payload))
	}
}

func (s *Server) handleConnect(c *client, payload []byte) {
	m, err := protocol.DecodeConnect(payload)
	if err != nil {
		c.sess.Logf("bad connect: %v", err)
		_ = c.sess.SendAndClose(protocol.EncodeConnectionRejected(protocol.RejectBadRequest))
		return
	}
	if !c.sess.Transition(session.Connected, session.AwaitingClassSelect) {
		c.sess.Logf("duplicate connect ignored")
		return
	}
	c.name = strings.TrimSpace(m.Name)
	_ = c.sess.Send(s.hello)
}

func (s *Server) handleClassSelect(c *client, payload []byte) {
	if c.sess.State() != session.AwaitingClassSelect || c.resp != nil {
		c.sess.Logf("class select in state %s ignored", c.sess.State())
		return
	}
	m, err := protocol.DecodeClassSelect(payload)
	if err != nil {
		c.sess.Logf("bad class select: %v", err)
		return
	}
	c.resp = make(chan world.JoinResponse, 1)
	s.mu.Lock()
	s.joining = append(s.joining, c)
	s.mu.Unlock()

	if !s.world.Join(world.JoinRequest{Name: c.name, Class: int(m.Index), Resp: c.resp}) {
		s.mu.Lock()
		s.joining = slices.DeleteFunc(s.joining, func(o *client) bool { return o == c })
		s.mu.Unlock()
		s.rejected.Add(1)
		_ = c.sess.SendAndClose(protocol.EncodeConnectionRejected(protocol.RejectWorldBusy))
	}
}

// HandleClose runs once per session after its loops stop.
func (s *Server) HandleClose(sess *session.Session, cause error) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	if id := sess.Player(); id != 0 {
		s.world.Leave(ecs.NetworkID(id))
	}
	sess.Logf("disconnected player=%d frames_in=%d frames_out=%d", sess.Player(), sess.FramesIn(), sess.FramesOut())
}

// onTick runs on the simulation goroutine after every step.
func (s *Server) onTick(res world.TickResult) {
	for _, id := range res.Left {
		delete(s.spawned, id)
	}
	s.resolveJoins()

	s.order = s.order[:0]
	for id := range s.spawned {
		s.order = append(s.order, id)
	}
	slices.Sort(s.order)
	s.spawnedCount.Store(int64(len(s.order)))

	events := s.eventFrames(res)
	var full []byte
	var idx netview.Index
	if s.full {
		full = protocol.EncodeWorldState(res.States)
	} else if len(s.order) > 0 {
		idx = netview.NewIndex(res.States)
	}
	grid := s.world.Grid()

	for _, id := range s.order {
		c := s.spawned[id]
		b := append(s.batch[:0], events...)
		if s.full {
			b = append(b, full...)
		} else {
			s.near = c.view.Nearby(s.near[:0], res.States, idx, grid)
			u := c.view.ComputeUpdates(s.near, res.Now)
			for _, f := range u.Frames() {
				b = append(b, f...)
			}
		}
		s.batch = b
		if len(b) == 0 {
			continue
		}
		// The queue keeps the slice, so each client gets its own copy.
		_ = c.sess.Send(slices.Clone(b))
	}
	s.broadcasts.Add(1)
}

func (s *Server) resolveJoins() {
	s.mu.Lock()
	pending := s.joining
	s.joining = nil
	s.mu.Unlock()

	var keep []*client
	for _, c := range pending {
		var resp world.JoinResponse
		select {
		case resp = <-c.resp:
		default:
			keep = append(keep, c)
			continue
		}
		if resp.Err != nil {
			s.rejected.Add(1)
			reason := protocol.RejectInternal
			if errors.Is(resp.Err, world.ErrServerFull) {
				reason = protocol.RejectServerFull
			}
			c.sess.Logf("join rejected: %v", resp.Err)
			_ = c.sess.SendAndClose(protocol.EncodeConnectionRejected(reason))
			continue
		}

		c.sess.SetPlayer(uint32(resp.ID))
		if !c.sess.Transition(session.AwaitingClassSelect, session.Spawned) {
			// Gone while joining; HandleClose may not have seen the id.
			go s.world.Leave(resp.ID)
			continue
		}
		c.id = resp.ID
		c.view = netview.New(&s.viewCfg, uint32(resp.ID))
		_ = c.sess.Send(protocol.EncodeConnectionAccepted(uint32(resp.ID)))

		joined := protocol.EncodeEntityState(protocol.TypePlayerJoined, &resp.State)
		for _, other := range s.spawned {
			_ = other.sess.Send(joined)
		}
		s.spawned[resp.ID] = c
		c.sess.Logf("spawned player=%d name=%q class=%d", resp.ID, resp.State.Name, resp.State.PlayerClass)
	}

	if len(keep) > 0 {
		s.mu.Lock()
		s.joining = append(keep, s.joining...)
		s.mu.Unlock()
	}
}

func (s *Server) eventFrames(res world.TickResult) []byte {
	var b []byte
	for _, id := range res.Left {
		b = append(b, protocol.EncodeIDMessage(protocol.TypePlayerLeft, uint32(id))...)
	}
	for _, ev := range res.Combat {
		b = append(b, protocol.CombatEvent{
			AttackerID: uint32(ev.Attacker),
			TargetID:   uint32(ev.Target),
			Damage:     ev.Damage,
			TargetX:    ev.TargetX,
			TargetZ:    ev.TargetZ,
		}.Encode()...)
		if ev.Killed {
			b = append(b, protocol.EntityDeath{EntityID: uint32(ev.Target), KillerID: uint32(ev.Attacker)}.Encode()...)
		}
	}
	return b
}
