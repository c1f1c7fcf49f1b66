package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"mmoarena.ai/internal/protocol"
	"mmoarena.ai/internal/session"
)

type echo struct{ remotes chan string }

// Attach writes every frame it reads straight back.
func (e *echo) Attach(ctx context.Context, conn session.Conn, remote string) error {
	e.remotes <- remote
	defer conn.Close()
	for {
		t, payload, err := protocol.ReadFrame(conn, protocol.DefaultMaxPayload)
		if err != nil {
			return err
		}
		if _, err := conn.Write(protocol.Frame(t, payload)); err != nil {
			return err
		}
	}
}

func TestListener_AttachesEachConnection(t *testing.T) {
	e := &echo{remotes: make(chan string, 4)}
	l, err := Listen("127.0.0.1:0", e, nil)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- l.Serve(ctx) }()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write(protocol.Connect{Name: "tcp"}.Encode()); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, payload, err := protocol.ReadFrame(conn, 0)
	if err != nil || typ != protocol.TypeConnect {
		t.Fatalf("echo = %s, %v", typ, err)
	}
	if m, _ := protocol.DecodeConnect(payload); m.Name != "tcp" {
		t.Fatalf("name = %q", m.Name)
	}
	if r := <-e.remotes; r == "" {
		t.Fatalf("empty remote")
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
}
