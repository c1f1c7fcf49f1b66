package session

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"mmoarena.ai/internal/protocol"
)

type frame struct {
	t       protocol.MessageType
	payload []byte
}

type recorder struct {
	frames  chan frame
	closed  chan error
	onFrame func(s *Session, f frame)
}

func newRecorder() *recorder {
	return &recorder{frames: make(chan frame, 16), closed: make(chan error, 1)}
}

func (r *recorder) HandleFrame(s *Session, t protocol.MessageType, payload []byte) {
	f := frame{t: t, payload: payload}
	if r.onFrame != nil {
		r.onFrame(s, f)
	}
	r.frames <- f
}

func (r *recorder) HandleClose(s *Session, cause error) { r.closed <- cause }

func start(t *testing.T, h Handler, opts Options) (*Session, net.Conn, chan error) {
	t.Helper()
	server, client := net.Pipe()
	s := New(server, h, opts)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	t.Cleanup(func() { _ = client.Close() })
	return s, client, done
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
	var zero T
	return zero
}

func TestSession_DispatchesFramesInOrder(t *testing.T) {
	rec := newRecorder()
	_, client, done := start(t, rec, Options{})

	go func() {
		_, _ = client.Write(protocol.Connect{Name: "alice"}.Encode())
		_, _ = client.Write(protocol.ClassSelect{Index: 2}.Encode())
		_, _ = client.Write(protocol.Frame(protocol.TypeDisconnect, nil))
	}()

	f := wait(t, rec.frames)
	if f.t != protocol.TypeConnect {
		t.Fatalf("first frame = %s", f.t)
	}
	if c, err := protocol.DecodeConnect(f.payload); err != nil || c.Name != "alice" {
		t.Fatalf("connect = %+v, %v", c, err)
	}
	if f := wait(t, rec.frames); f.t != protocol.TypeClassSelect || f.payload[0] != 2 {
		t.Fatalf("second frame = %s %v", f.t, f.payload)
	}
	if f := wait(t, rec.frames); f.t != protocol.TypeDisconnect || len(f.payload) != 0 {
		t.Fatalf("third frame = %s %v", f.t, f.payload)
	}

	_ = client.Close()
	if err := wait(t, rec.closed); err != nil {
		t.Fatalf("close cause = %v, want nil on peer hangup", err)
	}
	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v", err)
	}
}

func TestSession_SendWritesWholeFrames(t *testing.T) {
	rec := newRecorder()
	s, client, _ := start(t, rec, Options{})

	if err := s.Send(protocol.EncodeConnectionAccepted(7)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send(protocol.EncodeIDMessage(protocol.TypePlayerLeft, 9)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, payload, err := protocol.ReadFrame(client, 0)
	if err != nil || typ != protocol.TypeConnectionAccepted {
		t.Fatalf("ReadFrame = %s, %v", typ, err)
	}
	if id, _ := protocol.DecodeConnectionAccepted(payload); id != 7 {
		t.Fatalf("accepted id = %d", id)
	}
	typ, payload, err = protocol.ReadFrame(client, 0)
	if err != nil || typ != protocol.TypePlayerLeft {
		t.Fatalf("ReadFrame = %s, %v", typ, err)
	}
	if id, _ := protocol.DecodeID(payload); id != 9 {
		t.Fatalf("left id = %d", id)
	}
	if s.FramesOut() != 2 {
		t.Fatalf("FramesOut = %d", s.FramesOut())
	}
}

func TestSession_OversizePayloadIsFault(t *testing.T) {
	rec := newRecorder()
	_, client, done := start(t, rec, Options{MaxPayload: 16})

	go func() { _, _ = client.Write(protocol.Frame(protocol.TypeConnect, make([]byte, 32))) }()

	cause := wait(t, rec.closed)
	if !errors.Is(cause, protocol.ErrPayloadTooLarge) {
		t.Fatalf("close cause = %v, want ErrPayloadTooLarge", cause)
	}
	if err := wait(t, done); !errors.Is(err, protocol.ErrPayloadTooLarge) {
		t.Fatalf("Run = %v", err)
	}
	select {
	case f := <-rec.frames:
		t.Fatalf("oversize frame dispatched: %s", f.t)
	default:
	}
}

func TestSession_FullQueueClosesSession(t *testing.T) {
	rec := newRecorder()
	s, _, done := start(t, rec, Options{QueueSize: 1})

	// Nobody reads the client end, so the writer blocks on its first frame.
	var err error
	for i := 0; i < 8 && err == nil; i++ {
		err = s.Send(protocol.EncodeConnectionAccepted(uint32(i)))
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Send = %v, want ErrQueueFull", err)
	}
	if cause := wait(t, rec.closed); !errors.Is(cause, ErrQueueFull) {
		t.Fatalf("close cause = %v", cause)
	}
	wait(t, done)
	if s.State() != Disconnected {
		t.Fatalf("state = %s", s.State())
	}
	if err := s.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}
}

func TestSession_SendAndCloseFlushesFinalFrame(t *testing.T) {
	rec := newRecorder()
	s, client, _ := start(t, rec, Options{})

	if err := s.SendAndClose(protocol.EncodeConnectionRejected(protocol.RejectServerFull)); err != nil {
		t.Fatalf("SendAndClose: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, payload, err := protocol.ReadFrame(client, 0)
	if err != nil || typ != protocol.TypeConnectionRejected {
		t.Fatalf("ReadFrame = %s, %v", typ, err)
	}
	if reason, _ := protocol.DecodeConnectionRejected(payload); reason != protocol.RejectServerFull {
		t.Fatalf("reason = %q", reason)
	}
	if _, _, err := protocol.ReadFrame(client, 0); !errors.Is(err, io.EOF) {
		t.Fatalf("after final frame err = %v, want EOF", err)
	}
	if cause := wait(t, rec.closed); cause != nil {
		t.Fatalf("close cause = %v", cause)
	}
}

func TestSession_HandlerCloseStopsReading(t *testing.T) {
	rec := newRecorder()
	rec.onFrame = func(s *Session, f frame) {
		if f.t == protocol.TypeDisconnect {
			s.Close(nil)
		}
	}
	_, client, done := start(t, rec, Options{})

	go func() { _, _ = client.Write(protocol.Frame(protocol.TypeDisconnect, nil)) }()
	wait(t, rec.frames)
	if cause := wait(t, rec.closed); cause != nil {
		t.Fatalf("close cause = %v", cause)
	}
	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v", err)
	}
}

func TestSession_ContextCancelCloses(t *testing.T) {
	rec := newRecorder()
	server, client := net.Pipe()
	defer client.Close()
	s := New(server, rec, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	if err := wait(t, done); err != nil {
		t.Fatalf("Run = %v", err)
	}
	wait(t, rec.closed)
}

func TestSession_Transition(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()
	s := New(server, newRecorder(), Options{})

	if s.State() != Connected {
		t.Fatalf("initial state = %s", s.State())
	}
	if s.Transition(AwaitingClassSelect, Spawned) {
		t.Fatalf("transition from wrong state succeeded")
	}
	if !s.Transition(Connected, AwaitingClassSelect) || !s.Transition(AwaitingClassSelect, Spawned) {
		t.Fatalf("valid transitions failed")
	}
	s.Close(nil)
	if s.Transition(Disconnected, Connected) {
		t.Fatalf("left the terminal state")
	}
}
