// Package proto declares the protocol-handshake collaborator contract
// the core consumes (spec.md §6.1) — H1/H2 Connection adapters built
// on the opaque wire codecs net/http and golang.org/x/net/http2
// already provide — and the request-canonicalization rules the pool's
// caller applies before dispatch (spec.md §4.4).
package proto

import (
	"context"
	"net/http"

	"github.com/alexrudy/hyperdrive/braid"
)

// Version is the protocol a Connection speaks.
type Version int

const (
	H1 Version = iota
	H2
)

func (v Version) String() string {
	if v == H2 {
		return "HTTP/2"
	}
	return "HTTP/1.1"
}

// Connection is the collaborator contract a completed protocol
// handshake produces (spec.md §6.1).
type Connection interface {
	// SendRequest dispatches req and returns its response.
	SendRequest(ctx context.Context, req *http.Request) (*http.Response, error)

	// Version reports which protocol this connection speaks.
	Version() Version

	// CanShare reports whether this connection may serve multiple
	// concurrent requests (true for HTTP/2, false for HTTP/1.1).
	CanShare() bool

	// WhenReady suspends until the connection is ready to accept
	// another request, or reports a terminal error if it can't.
	WhenReady(ctx context.Context) error
}

// Handshaker is the protocol-handshake collaborator contract (spec.md
// §6.1): given a braid.Stream whose transport dial already succeeded,
// produce a Connection.
type Handshaker interface {
	Connect(ctx context.Context, stream braid.Stream) (Connection, error)
}
