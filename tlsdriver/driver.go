// Package tlsdriver implements the three-state TLS handshake machine
// described in spec.md §4.2: Pending -> InProgress -> {Ready|Failed}.
// It drives a *tls.Conn to completion either implicitly, on the first
// read or write through the owning braid.Stream, or explicitly via
// FinishHandshake, and publishes the outcome on a conninfo.Channel
// exactly once.
package tlsdriver

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/pkg/errors"

	"github.com/alexrudy/hyperdrive/conninfo"
	"github.com/alexrudy/hyperdrive/trc"
)

// State is the handshake driver's current phase.
type State int

const (
	Pending State = iota
	InProgress
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in-progress"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Driver owns a *tls.Conn and drives its handshake exactly once,
// publishing the result on Channel. It is safe for concurrent use:
// concurrent Touch/Finish calls coalesce onto a single handshake
// attempt via sync.Once.
type Driver struct {
	conn    *tls.Conn
	channel *conninfo.Channel

	once  sync.Once
	mu    sync.Mutex
	state State
	err   error
}

// New constructs a Driver around an already-established *tls.Conn
// (obtained from tls.Client/tls.Server wrapping a non-TLS braid
// carrier). The handshake has not yet been driven.
func New(conn *tls.Conn) *Driver {
	return &Driver{conn: conn, channel: conninfo.NewChannel(), state: Pending}
}

// Channel returns the one-shot info channel this driver publishes to.
func (d *Driver) Channel() *conninfo.Channel {
	return d.channel
}

// State reports the driver's current phase without blocking.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Touch kicks off the handshake if it hasn't started yet, without
// waiting for it to complete. It's called from the first Read/Write
// on the owning stream so handshake latency overlaps with whatever
// else the caller is doing before it actually needs the connection
// info.
func (d *Driver) Touch(ctx context.Context) {
	d.once.Do(func() { go d.run(ctx) })
}

// Finish drives the handshake (if not already started) and blocks
// until it completes, returning the terminal error if any.
func (d *Driver) Finish(ctx context.Context) error {
	d.Touch(ctx)
	_, err := d.channel.Await(ctx)
	return err
}

func (d *Driver) run(ctx context.Context) {
	d.mu.Lock()
	d.state = InProgress
	d.mu.Unlock()

	trace := trc.ContextClientTrace(ctx)
	if trace != nil && trace.TLSHandshakeStart != nil {
		trace.TLSHandshakeStart()
	}

	err := d.conn.HandshakeContext(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.state = Failed
		d.err = errors.Wrap(err, "tlsdriver: handshake failed")
		d.channel.Publish(conninfo.Info{}, d.err)
		if trace != nil && trace.TLSHandshakeDone != nil {
			trace.TLSHandshakeDone(conninfo.Info{}, d.err)
		}
		return
	}

	cs := d.conn.ConnectionState()
	d.state = Ready
	info := conninfo.Info{
		LocalAddr:        d.conn.LocalAddr(),
		RemoteAddr:       d.conn.RemoteAddr(),
		NegotiatedALPN:   cs.NegotiatedProtocol,
		PeerCertificates: cs.PeerCertificates,
	}
	d.channel.Publish(info, nil)
	if trace != nil && trace.TLSHandshakeDone != nil {
		trace.TLSHandshakeDone(info, nil)
	}
}

// Poisoned reports whether a prior handshake attempt failed; once
// true it stays true, and every subsequent I/O call on the owning
// stream should return the same error.
func (d *Driver) Poisoned() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Failed {
		return d.err
	}
	return nil
}
