package pool

import (
	"sync"

	"github.com/alexrudy/hyperdrive/proto"
	"github.com/alexrudy/hyperdrive/trc"
)

// PooledConnection is the guard of spec.md §3: it owns either an
// exclusive idle connection removed from the pool, or a cloned handle
// to a shared multiplexed connection. Go has no destructors, so
// callers must call Release (success) or Discard (failure) exactly
// once when finished — there is no implicit drop.
type PooledConnection struct {
	pool   *Pool
	key    Key
	conn   proto.Connection
	shared bool
	trace  *trc.ClientTrace

	mu       sync.Mutex
	released bool
}

// Connection returns the underlying protocol connection to dispatch
// requests on.
func (pc *PooledConnection) Connection() proto.Connection { return pc.conn }

// Shared reports whether this guard holds a cloned handle to a
// multiplexed connection rather than exclusive ownership.
func (pc *PooledConnection) Shared() bool { return pc.shared }

// Release returns the connection to the pool. For an exclusive
// (HTTP/1.1) guard this spawns the background task of spec.md §4.4's
// return protocol, which waits for WhenReady before the connection
// becomes visible to another checkout — handing out a pipelined or
// half-drained connection would violate the pool's exclusivity
// invariant. For a shared guard it is a no-op: the pool entry's
// `shared` handle lives independently of any one caller's clone.
// Calling Release more than once is a no-op.
func (pc *PooledConnection) Release() {
	pc.mu.Lock()
	if pc.released {
		pc.mu.Unlock()
		return
	}
	pc.released = true
	pc.mu.Unlock()

	if pc.shared {
		return
	}
	go pc.pool.returnConn(pc.key, pc.conn, pc.trace)
}

// Discard closes the connection instead of returning it, for the
// ConnectionClosed and Cancelled-during-dispatch paths of spec.md §5
// and §7: an in-flight HTTP/1.1 request can't be safely reused.
// Calling Discard more than once is a no-op.
func (pc *PooledConnection) Discard() {
	pc.mu.Lock()
	if pc.released {
		pc.mu.Unlock()
		return
	}
	pc.released = true
	pc.mu.Unlock()

	if c, ok := pc.conn.(closer); ok {
		c.Close()
	}
}
