// Package tcp accepts raw TCP clients speaking the framed binary protocol.
package tcp

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"time"

	"mmoarena.ai/internal/session"
)

// Attacher serves one connection until it closes.
type Attacher interface {
	Attach(ctx context.Context, conn session.Conn, remote string) error
}

type Listener struct {
	ln  net.Listener
	srv Attacher
	log *log.Logger
}

func Listen(addr string, srv Attacher, logger *log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, srv: srv, log: logger}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve accepts until ctx is done. Each connection runs on its own goroutine.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	var backoff time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if backoff == 0 {
					backoff = 5 * time.Millisecond
				} else {
					backoff = min(2*backoff, time.Second)
				}
				l.log.Printf("tcp: accept: %v; retrying in %v", err, backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		go func() {
			_ = l.srv.Attach(ctx, conn, conn.RemoteAddr().String())
		}()
	}
}
