package proto

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/net/http2"

	"github.com/alexrudy/hyperdrive/braid"
)

// H2Connection serves many concurrent requests over one
// golang.org/x/net/http2.ClientConn: this is the multiplexed
// connection spec.md §3/§4.4 calls `shared`.
type H2Connection struct {
	cc *http2.ClientConn
}

// NewH2Connection wraps an already-negotiated HTTP/2 client
// connection.
func NewH2Connection(cc *http2.ClientConn) *H2Connection {
	return &H2Connection{cc: cc}
}

func (c *H2Connection) Version() Version { return H2 }

// CanShare is always true: HTTP/2 connections multiplex many logical
// requests over one transport connection.
func (c *H2Connection) CanShare() bool { return true }

func (c *H2Connection) SendRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.cc.RoundTrip(req.WithContext(ctx))
}

// WhenReady reports whether http2.ClientConn still accepts new
// streams; it returns immediately either way (HTTP/2 has no
// single-request-at-a-time gate to await).
func (c *H2Connection) WhenReady(ctx context.Context) error {
	if c.cc.CanTakeNewRequest() {
		return nil
	}
	return ErrConnectionClosed
}

// H2Handshaker negotiates an HTTP/2 client connection over a stream
// whose ALPN already settled on "h2".
type H2Handshaker struct {
	// Transport supplies HTTP/2-specific tuning (flow control window,
	// ping interval); a zero value is a usable default.
	Transport *http2.Transport
}

func (h H2Handshaker) Connect(ctx context.Context, stream braid.Stream) (Connection, error) {
	if err := stream.FinishHandshake(ctx); err != nil {
		return nil, errors.Wrap(err, "proto: h2 handshake")
	}
	t := h.Transport
	if t == nil {
		t = &http2.Transport{}
	}
	cc, err := t.NewClientConn(stream)
	if err != nil {
		return nil, errors.Wrap(err, "proto: h2 client conn")
	}
	return NewH2Connection(cc), nil
}

// SelectHandshaker picks H1 or H2 based on the stream's negotiated
// ALPN protocol, falling back to H1 when nothing was negotiated
// (plaintext, or a TLS peer that didn't offer ALPN).
func SelectHandshaker(negotiatedALPN string, h2 *http2.Transport) Handshaker {
	if negotiatedALPN == http2.NextProtoTLS {
		return H2Handshaker{Transport: h2}
	}
	return H1Handshaker{}
}
