// Package dial supplies the transport-dialer collaborators the core
// consumes (spec.md §6.1): functions that produce a braid.Stream for
// one candidate address. They are the Candidate values races over.
package dial

import (
	"context"
	"net"
	"time"

	"github.com/alexrudy/hyperdrive/braid"
	"github.com/alexrudy/hyperdrive/race"
	"github.com/alexrudy/hyperdrive/trc"
)

// TCPDialer dials TCP candidates, honoring nodelay/keepalive settings
// (spec.md §6.4).
type TCPDialer struct {
	KeepAlive time.Duration
	NoDelay   bool
	LocalAddr net.Addr
}

// Candidate returns a race.Candidate that dials addr over TCP.
func (d *TCPDialer) Candidate(addr string) race.Candidate[braid.Stream] {
	nd := net.Dialer{
		KeepAlive: d.KeepAlive,
		LocalAddr: d.LocalAddr,
	}
	return func(ctx context.Context) (braid.Stream, error) {
		trace := trc.ContextClientTrace(ctx)
		if trace != nil && trace.ConnectStart != nil {
			trace.ConnectStart("tcp", addr)
		}
		conn, err := nd.DialContext(ctx, "tcp", addr)
		if trace != nil && trace.ConnectDone != nil {
			trace.ConnectDone("tcp", addr, err)
		}
		if err != nil {
			return nil, err
		}
		if d.NoDelay {
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.SetNoDelay(true)
			}
		}
		return braid.NewTCP(conn), nil
	}
}

// UnixDialer dials Unix-domain socket candidates.
type UnixDialer struct{}

// Candidate returns a race.Candidate that dials path over a Unix
// domain socket.
func (UnixDialer) Candidate(path string) race.Candidate[braid.Stream] {
	var nd net.Dialer
	return func(ctx context.Context) (braid.Stream, error) {
		conn, err := nd.DialContext(ctx, "unix", path)
		if err != nil {
			return nil, err
		}
		return braid.NewUnix(conn), nil
	}
}

// DuplexPair returns two Streams connected to each other in-memory,
// for the client/server pairing spec.md §8 scenario 1 describes.
func DuplexPair() (client, server braid.Stream) {
	c, s := net.Pipe()
	return braid.NewDuplex(c), braid.NewDuplex(s)
}
