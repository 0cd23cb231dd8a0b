package braid

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/alexrudy/hyperdrive/conninfo"
	"github.com/alexrudy/hyperdrive/tlsdriver"
)

// tlsStream layers TLS over any non-TLS Stream. It satisfies Stream
// itself by delegating Read/Write/Close to the underlying *tls.Conn
// (which in turn reads/writes through inner) and by delegating
// Info/FinishHandshake to its tlsdriver.Driver.
type tlsStream struct {
	inner  Stream
	conn   *tls.Conn
	driver *tlsdriver.Driver
}

// AttachTLS transitions a non-TLS Stream into a Tls variant wrapping
// it, per spec.md §4.1's attach_tls contract. domain sets the SNI/
// verification ServerName when config.ServerName is empty. Calling
// AttachTLS on a stream whose Kind is already KindTLS returns
// ErrAlreadyTLS: double-wrapping is a programmer error.
func AttachTLS(inner Stream, domain string, config *tls.Config) (Stream, error) {
	if inner.Kind() == KindTLS {
		return nil, ErrAlreadyTLS
	}
	cfg := config.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = domain
	}
	conn := tls.Client(streamConn{inner}, cfg)
	return &tlsStream{
		inner:  inner,
		conn:   conn,
		driver: tlsdriver.New(conn),
	}, nil
}

// AttachTLSServer is AttachTLS's server-side counterpart, used by
// accept.Acceptor when wrapping an incoming connection before the
// protocol handshake begins.
func AttachTLSServer(inner Stream, config *tls.Config) (Stream, error) {
	if inner.Kind() == KindTLS {
		return nil, ErrAlreadyTLS
	}
	conn := tls.Server(streamConn{inner}, config)
	return &tlsStream{
		inner:  inner,
		conn:   conn,
		driver: tlsdriver.New(conn),
	}, nil
}

func (t *tlsStream) Read(b []byte) (int, error) {
	t.driver.Touch(context.Background())
	if err := t.driver.Poisoned(); err != nil {
		return 0, err
	}
	return t.conn.Read(b)
}

func (t *tlsStream) Write(b []byte) (int, error) {
	t.driver.Touch(context.Background())
	if err := t.driver.Poisoned(); err != nil {
		return 0, err
	}
	return t.conn.Write(b)
}

func (t *tlsStream) Flush() error {
	return t.inner.Flush()
}

func (t *tlsStream) Shutdown() error {
	if err := t.conn.CloseWrite(); err != nil {
		t.inner.Shutdown()
		return err
	}
	return t.inner.Shutdown()
}

func (t *tlsStream) Close() error {
	return t.conn.Close()
}

func (t *tlsStream) LocalAddr() net.Addr  { return t.inner.LocalAddr() }
func (t *tlsStream) RemoteAddr() net.Addr { return t.inner.RemoteAddr() }

func (t *tlsStream) SetDeadline(ts time.Time) error      { return t.inner.SetDeadline(ts) }
func (t *tlsStream) SetReadDeadline(ts time.Time) error   { return t.inner.SetReadDeadline(ts) }
func (t *tlsStream) SetWriteDeadline(ts time.Time) error  { return t.inner.SetWriteDeadline(ts) }

func (t *tlsStream) Kind() Kind { return KindTLS }

// Info suspends until the handshake channel resolves.
func (t *tlsStream) Info(ctx context.Context) (conninfo.Info, error) {
	t.driver.Touch(ctx)
	return t.driver.Channel().Await(ctx)
}

// FinishHandshake drives the handshake to completion.
func (t *tlsStream) FinishHandshake(ctx context.Context) error {
	return t.driver.Finish(ctx)
}

// streamConn adapts a braid.Stream to net.Conn so it can sit under a
// *tls.Conn (which only requires net.Conn). crypto/tls never calls
// Flush, and the plain carriers buffer writes until Flush, so every
// Write is flushed straight through; TLS already batches its output
// into whole records, so nothing is lost by not buffering again.
type streamConn struct {
	Stream
}

func (s streamConn) Write(b []byte) (int, error) {
	n, err := s.Stream.Write(b)
	if err != nil {
		return n, err
	}
	return n, s.Stream.Flush()
}
