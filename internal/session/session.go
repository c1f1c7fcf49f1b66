// Package session runs one client connection: a framed read loop that hands
// every decoded frame to a Handler, and a single writer draining a bounded
// outbound queue.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mmoarena.ai/internal/protocol"
)

var (
	// ErrQueueFull is the close cause when a client cannot keep up with its
	// outbound queue.
	ErrQueueFull = errors.New("session: outbound queue full")
	ErrClosed    = errors.New("session: closed")
)

type State int32

const (
	Connected State = iota
	AwaitingClassSelect
	Spawned
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case AwaitingClassSelect:
		return "awaiting_class_select"
	case Spawned:
		return "spawned"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Conn is the byte stream a session runs over. TCP connections, QUIC streams
// and the WebSocket adapter all satisfy it.
type Conn interface {
	io.Reader
	io.Writer
	Close() error
}

type deadlineConn interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Handler receives frames and the final close notification. HandleFrame is
// called from the session's read goroutine, one frame at a time.
type Handler interface {
	HandleFrame(s *Session, t protocol.MessageType, payload []byte)
	HandleClose(s *Session, cause error)
}

type Options struct {
	MaxPayload   uint32
	QueueSize    int
	ReadIdle     time.Duration
	WriteTimeout time.Duration
	Remote       string
	Logger       *log.Logger
}

type outFrame struct {
	b    []byte
	last bool
}

type Session struct {
	id      uuid.UUID
	conn    Conn
	handler Handler
	opts    Options
	log     *log.Logger

	out  chan outFrame
	done chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	cause     error

	state  atomic.Int32
	player atomic.Uint32

	framesIn  atomic.Uint64
	framesOut atomic.Uint64
	bytesOut  atomic.Uint64
}

func New(conn Conn, h Handler, opts Options) *Session {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MaxPayload == 0 {
		opts.MaxPayload = protocol.DefaultMaxPayload
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		id:      uuid.New(),
		conn:    conn,
		handler: h,
		opts:    opts,
		log:     logger,
		out:     make(chan outFrame, opts.QueueSize),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() uuid.UUID         { return s.id }
func (s *Session) Remote() string        { return s.opts.Remote }
func (s *Session) State() State          { return State(s.state.Load()) }
func (s *Session) Player() uint32        { return s.player.Load() }
func (s *Session) SetPlayer(id uint32)   { s.player.Store(id) }
func (s *Session) Done() <-chan struct{} { return s.done }
func (s *Session) QueueLen() int         { return len(s.out) }
func (s *Session) FramesIn() uint64      { return s.framesIn.Load() }
func (s *Session) FramesOut() uint64     { return s.framesOut.Load() }
func (s *Session) BytesOut() uint64      { return s.bytesOut.Load() }

func (s *Session) Logf(f string, a ...any) {
	s.log.Printf("session %s: "+f, append([]any{s.id}, a...)...)
}

// Transition moves from one state to another and reports whether the session
// was in the expected state. Disconnected is terminal.
func (s *Session) Transition(from, to State) bool {
	if from == Disconnected {
		return false
	}
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// Err returns the close cause; nil while open or after a clean close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Run serves the connection until it fails, the peer goes away, Close is
// called or ctx is done. HandleClose runs exactly once, after both loops have
// stopped.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			s.Close(nil)
		case <-s.done:
		}
	}()

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	err := s.readLoop()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	s.Close(err)
	<-writerDone

	cause := s.Err()
	s.handler.HandleClose(s, cause)
	return cause
}

func (s *Session) readLoop() error {
	dc, _ := s.conn.(deadlineConn)
	for {
		if dc != nil && s.opts.ReadIdle > 0 {
			_ = dc.SetReadDeadline(time.Now().Add(s.opts.ReadIdle))
		}
		t, payload, err := protocol.ReadFrame(s.conn, s.opts.MaxPayload)
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			return err
		}
		s.framesIn.Add(1)
		s.handler.HandleFrame(s, t, payload)
		select {
		case <-s.done:
			return nil
		default:
		}
	}
}

func (s *Session) writeLoop(done chan struct{}) {
	defer close(done)
	dc, _ := s.conn.(deadlineConn)
	for {
		select {
		case <-s.done:
			return
		case f := <-s.out:
			if dc != nil && s.opts.WriteTimeout > 0 {
				_ = dc.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			}
			if _, err := s.conn.Write(f.b); err != nil {
				s.Close(err)
				return
			}
			s.framesOut.Add(1)
			s.bytesOut.Add(uint64(len(f.b)))
			if f.last {
				s.Close(nil)
				return
			}
		}
	}
}

// Send queues a complete frame without blocking. A full queue is a fault:
// the session is closed with ErrQueueFull.
func (s *Session) Send(frame []byte) error {
	return s.enqueue(outFrame{b: frame})
}

// SendAndClose queues a final frame; the session closes once it is written.
func (s *Session) SendAndClose(frame []byte) error {
	return s.enqueue(outFrame{b: frame, last: true})
}

func (s *Session) enqueue(f outFrame) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.out <- f:
		return nil
	default:
		s.Close(ErrQueueFull)
		return ErrQueueFull
	}
}

// Close tears the session down. The first cause wins; queued frames that were
// not yet written are dropped.
func (s *Session) Close(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.cause = cause
		s.mu.Unlock()
		s.state.Store(int32(Disconnected))
		close(s.done)
		_ = s.conn.Close()
		if cause != nil {
			s.Logf("closed: %v", cause)
		}
	})
}
