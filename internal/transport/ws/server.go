// Package ws carries the framed binary protocol over WebSocket binary
// messages, for browser clients.
package ws

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mmoarena.ai/internal/session"
)

// Path is where the handler is mounted by cmd/server.
const Path = "/v1/ws"

type Attacher interface {
	Attach(ctx context.Context, conn session.Conn, remote string) error
}

type Server struct {
	ctx context.Context
	srv Attacher
	log *log.Logger

	upgrader websocket.Upgrader
}

// NewServer binds upgraded connections to srv. Sessions are cancelled with
// ctx, not with the HTTP request.
func NewServer(ctx context.Context, srv Attacher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		ctx: ctx,
		srv: srv,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Printf("ws: upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		_ = s.srv.Attach(s.ctx, NewConn(conn), r.RemoteAddr)
	}
}

// Dial opens a client connection, as used by cmd/bot.
func Dial(ctx context.Context, url string) (*Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// Conn adapts a WebSocket to a byte stream. Every Write is sent as one
// binary message; Read concatenates incoming binary messages.
type Conn struct {
	c *websocket.Conn
	r io.Reader
}

func NewConn(c *websocket.Conn) *Conn { return &Conn{c: c} }

func (w *Conn) Read(p []byte) (int, error) {
	for {
		if w.r == nil {
			typ, r, err := w.c.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			w.r = r
		}
		n, err := w.r.Read(p)
		if err == io.EOF {
			w.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *Conn) Write(p []byte) (int, error) {
	if err := w.c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Conn) Close() error {
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.c.Close()
}

func (w *Conn) SetReadDeadline(t time.Time) error  { return w.c.SetReadDeadline(t) }
func (w *Conn) SetWriteDeadline(t time.Time) error { return w.c.SetWriteDeadline(t) }
