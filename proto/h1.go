package proto

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/alexrudy/hyperdrive/braid"
)

// ErrConnectionClosed reports that the peer closed the connection
// mid-request (spec.md §7's ConnectionClosed kind); the connection is
// discarded, not returned to the pool.
var ErrConnectionClosed = errors.New("proto: connection closed")

// H1Connection serves one request at a time over an HTTP/1.1 stream,
// grounded in badu-http/src/http/request.go's Request.Write +
// net/http's ReadResponse as the opaque wire-codec sink spec.md §1
// delegates to. Its mutex is the connection's exclusivity: it IS the
// "owner of the exclusive guard" spec.md §5 requires for linearizable
// reads/writes.
type H1Connection struct {
	stream braid.Stream
	br     *bufio.Reader

	mu      sync.Mutex
	closed  bool
	pending chan struct{} // non-nil while the last response's body is still being drained
}

// NewH1Connection wraps a stream whose protocol handshake (none,
// beyond TLS) has already completed.
func NewH1Connection(stream braid.Stream) *H1Connection {
	return &H1Connection{stream: stream, br: bufio.NewReader(stream)}
}

func (c *H1Connection) Version() Version { return H1 }

// CanShare is always false: coalescing an HTTP/1.1 handshake would
// only help the first waiter (spec.md §9).
func (c *H1Connection) CanShare() bool { return false }

func (c *H1Connection) SendRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}

	if err := req.Write(c.stream); err != nil {
		c.closed = true
		return nil, errors.Wrap(err, "proto: write request")
	}
	if err := c.stream.Flush(); err != nil {
		c.closed = true
		return nil, errors.Wrap(err, "proto: flush request")
	}

	resp, err := http.ReadResponse(c.br, req)
	if err != nil {
		c.closed = true
		return nil, errors.Wrap(err, "proto: read response")
	}
	if resp.Close || req.Close {
		c.closed = true
	}

	// Gate the next SendRequest on this response's body being fully
	// drained, mirroring persist_conn.go's bodyEOFSignal/
	// waitForBodyRead: handing the stream to a new waiter while this
	// caller is still reading resp.Body off the shared bufio.Reader
	// would interleave both exchanges on the wire.
	if resp.Body != nil && resp.Body != http.NoBody {
		drain := &bodyDrainSignal{ReadCloser: resp.Body, done: make(chan struct{})}
		drain.onDone = func(err error) {
			if err != nil && err != io.EOF {
				c.mu.Lock()
				c.closed = true
				c.mu.Unlock()
			}
		}
		resp.Body = drain
		c.pending = drain.done
	} else {
		c.pending = nil
	}
	return resp, nil
}

// WhenReady blocks until the previous response's body has been fully
// drained (read to EOF or explicitly closed) before reporting ready
// for the next request.
func (c *H1Connection) WhenReady(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	pending := c.pending
	c.mu.Unlock()

	if pending != nil {
		select {
		case <-pending:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return nil
}

// bodyDrainSignal wraps a response body and closes done the first
// time it observes EOF (from Read) or an explicit Close, whichever
// comes first — the same completion event badu-http's bodyEOFSignal
// publishes to its own waitForBodyRead channel.
type bodyDrainSignal struct {
	io.ReadCloser
	once   sync.Once
	done   chan struct{}
	onDone func(error)
}

func (b *bodyDrainSignal) signal(err error) {
	b.once.Do(func() {
		if b.onDone != nil {
			b.onDone(err)
		}
		close(b.done)
	})
}

func (b *bodyDrainSignal) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil {
		b.signal(err)
	}
	return n, err
}

func (b *bodyDrainSignal) Close() error {
	err := b.ReadCloser.Close()
	b.signal(err)
	return err
}

// Close tears down the underlying stream; dropping a request future
// during dispatch must close an HTTP/1 connection rather than return
// it (spec.md §5 Cancellation).
func (c *H1Connection) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.stream.Close()
}

// H1Handshaker produces H1Connections. It performs no protocol
// handshake of its own beyond finishing whatever TLS handshake the
// stream has pending.
type H1Handshaker struct{}

func (H1Handshaker) Connect(ctx context.Context, stream braid.Stream) (Connection, error) {
	if err := stream.FinishHandshake(ctx); err != nil {
		return nil, errors.Wrap(err, "proto: h1 handshake")
	}
	return NewH1Connection(stream), nil
}
