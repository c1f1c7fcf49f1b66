// Package quic accepts clients over QUIC. Each connection carries the framed
// binary protocol on the first bidirectional stream the client opens.
package quic

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"log"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"mmoarena.ai/internal/session"
)

// ALPN is the application protocol negotiated during the TLS handshake.
const ALPN = "mmoarena/1"

const (
	codeNormal   quic.ApplicationErrorCode = 0
	codeNoStream quic.ApplicationErrorCode = 0x0a
)

type Attacher interface {
	Attach(ctx context.Context, conn session.Conn, remote string) error
}

type Listener struct {
	ln  *quic.Listener
	srv Attacher
	log *log.Logger
}

// Listen binds addr. A nil tlsConf gets a throwaway self-signed certificate.
func Listen(addr string, tlsConf *tls.Config, srv Attacher, logger *log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if tlsConf == nil {
		var err error
		if tlsConf, err = SelfSignedTLS(); err != nil {
			return nil, err
		}
	}
	ln, err := quic.ListenAddr(addr, tlsConf, &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, srv: srv, log: logger}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Serve(ctx context.Context) error {
	defer l.ln.Close()
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return err
		}
		go l.serveConn(ctx, conn)
	}
}

func (l *Listener) serveConn(ctx context.Context, conn quic.Connection) {
	actx, cancel := context.WithTimeout(ctx, 10*time.Second)
	stream, err := conn.AcceptStream(actx)
	cancel()
	if err != nil {
		l.log.Printf("quic: %s opened no stream: %v", conn.RemoteAddr(), err)
		_ = conn.CloseWithError(codeNoStream, "no stream")
		return
	}
	_ = l.srv.Attach(ctx, &Conn{Stream: stream, conn: conn}, conn.RemoteAddr().String())
}

// Conn is one bidirectional stream; closing it closes the whole connection.
type Conn struct {
	quic.Stream
	conn quic.Connection
}

// Dial connects and opens the protocol stream, as used by cmd/bot.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config) (*Conn, error) {
	if tlsConf == nil {
		tlsConf = &tls.Config{InsecureSkipVerify: true, NextProtos: []string{ALPN}}
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(codeNoStream, "open stream")
		return nil, err
	}
	return &Conn{Stream: stream, conn: conn}, nil
}

func (c *Conn) Close() error {
	err := c.Stream.Close()
	c.Stream.CancelRead(0)
	_ = c.conn.CloseWithError(codeNormal, "")
	return err
}

// SelfSignedTLS builds a server config with a fresh ECDSA certificate valid
// for one year.
func SelfSignedTLS() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "mmoarena"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{ALPN},
	}, nil
}

// LoadTLS reads a certificate pair from disk.
func LoadTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, NextProtos: []string{ALPN}}, nil
}
