// Package braid implements the unified transport abstraction: a
// single stream type that carries TCP, Unix-domain, and in-memory
// duplex connections, with TLS optionally layered on top of any of
// them. Callers route, pool, and time requests against one Stream
// type regardless of carrier.
package braid

import (
	"context"
	"fmt"
	"net"

	"github.com/alexrudy/hyperdrive/conninfo"
)

// Kind tags the variant a Stream was constructed as. It never changes
// except for the one-shot NoTls -> Tls transition performed by
// AttachTLS.
type Kind int

const (
	KindTCP Kind = iota
	KindUnix
	KindDuplex
	KindTLS
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindUnix:
		return "unix"
	case KindDuplex:
		return "duplex"
	case KindTLS:
		return "tls"
	default:
		return "unknown"
	}
}

// Stream is the capability set every carrier satisfies: read, write,
// flush, shutdown, plus the metadata operations in spec.md §4.1.
//
// Implementations are a closed tagged union (Kind), not an open
// interface hierarchy: routing and pooling code type-switches on Kind
// where it needs carrier-specific behavior (there is none in this
// core; it exists for diagnostics) and otherwise treats every Stream
// identically.
type Stream interface {
	net.Conn

	// Flush pushes any buffered bytes to the carrier. Non-buffered
	// carriers implement this as a no-op.
	Flush() error

	// Shutdown performs a carrier-appropriate half/full close. For
	// TLS it sends close_notify before closing the inner carrier.
	Shutdown() error

	// Kind reports which variant this Stream is.
	Kind() Kind

	// Info suspends until connection metadata is available. For
	// non-TLS variants this returns immediately; for Tls it suspends
	// until the handshake channel resolves.
	Info(ctx context.Context) (conninfo.Info, error)

	// FinishHandshake drives a pending TLS handshake to completion.
	// For non-TLS variants it returns immediately with a nil error.
	FinishHandshake(ctx context.Context) error
}

// ErrAlreadyTLS is returned by AttachTLS when called on a Stream whose
// Kind is already KindTLS. Double-wrapping is a programmer error, not
// a recoverable runtime condition, but it's returned rather than
// panicked so callers building streams from untrusted configuration
// layering can reject them cleanly.
var ErrAlreadyTLS = fmt.Errorf("braid: stream is already TLS-wrapped")
