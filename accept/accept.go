// Package accept implements the server-side collaborator of spec.md
// §4.5: an acceptor that produces a stream of braid.Streams, dispatching
// each accepted connection through TLS when the acceptor is configured
// for it. Go's blocking Accept model stands in for the poll_accept
// contract spec.md §6.2 describes — there is no separate "not ready
// yet" state to report, so Accept either returns a Stream, a
// per-connection error, or ctx.Err() if ctx ends first.
package accept

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alexrudy/hyperdrive/braid"
)

// Acceptor is the server-side collaborator contract of spec.md §4.5.
// Accept errors are per-connection and non-fatal unless the
// underlying listener itself is terminal (net.Listener's Accept
// already distinguishes these via net.Error.Temporary in the teacher's
// corpus; callers loop on Accept and decide whether to keep going).
type Acceptor interface {
	Accept(ctx context.Context) (braid.Stream, error)
	Close() error
	Addr() net.Addr
}

// TCPAcceptor wraps a *net.TCPListener, grounded on
// tcp_keep_alive_listener.go's Accept override — keepalive is enabled
// on every accepted connection so idle connections behind NAT or
// stateful firewalls aren't silently dropped.
type TCPAcceptor struct {
	Listener *net.TCPListener

	// KeepAlive is the keepalive probe period; zero uses the
	// teacher's 3-minute default.
	KeepAlive time.Duration

	// TLS wraps every accepted connection with braid.AttachTLSServer
	// when non-nil.
	TLS *tls.Config

	Logger hclog.Logger
}

func (a *TCPAcceptor) logger() hclog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return hclog.NewNullLogger()
}

func (a *TCPAcceptor) Accept(ctx context.Context) (braid.Stream, error) {
	type result struct {
		conn *net.TCPConn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := a.Listener.AcceptTCP()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		r.conn.SetKeepAlive(true)
		ka := a.KeepAlive
		if ka == 0 {
			ka = 3 * time.Minute
		}
		r.conn.SetKeepAlivePeriod(ka)
		return a.wrap(braid.NewTCP(r.conn))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *TCPAcceptor) wrap(stream braid.Stream) (braid.Stream, error) {
	if a.TLS == nil {
		return stream, nil
	}
	tlsStream, err := braid.AttachTLSServer(stream, a.TLS)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return tlsStream, nil
}

func (a *TCPAcceptor) Close() error   { return a.Listener.Close() }
func (a *TCPAcceptor) Addr() net.Addr { return a.Listener.Addr() }

// UnixAcceptor wraps a *net.UnixListener. Unix-domain sockets carry no
// meaningful TLS identity (there's no hostname to validate against a
// certificate), so, unlike TCPAcceptor, it has no TLS field — wrapping
// one in TLS is a caller decision made explicit via
// braid.AttachTLSServer rather than implied by this type.
type UnixAcceptor struct {
	Listener *net.UnixListener
}

func (a *UnixAcceptor) Accept(ctx context.Context) (braid.Stream, error) {
	type result struct {
		conn *net.UnixConn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := a.Listener.AcceptUnix()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return braid.NewUnix(r.conn), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *UnixAcceptor) Close() error   { return a.Listener.Close() }
func (a *UnixAcceptor) Addr() net.Addr { return a.Listener.Addr() }
