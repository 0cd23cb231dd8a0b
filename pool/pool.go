// Package pool implements the connection pool of spec.md §4.4: a
// per-Key map of idle connections, in-flight dial+handshake
// coalescing, and HTTP/2 multiplexed-connection sharing, grounded on
// badu-http's src/http/transport.go Transport.getConn/dialConn family
// and src/http/tport/persist_conn.go's idle bookkeeping.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/alexrudy/hyperdrive/proto"
	"github.com/alexrudy/hyperdrive/trc"
)

// Config is the pool's tunable configuration (spec.md §6.4), validated
// with go-playground/validator the way badu-http's own config types
// are validated.
type Config struct {
	// IdleTimeout bounds how long an idle connection may sit before a
	// checkout treats it as stale. Zero means no timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"omitempty,gt=0"`

	// MaxIdlePerHost caps idle connections retained per Key. Zero
	// means unbounded.
	MaxIdlePerHost int `mapstructure:"max_idle_per_host" validate:"gte=0"`
}

// DefaultConfig matches spec.md §6.4's stated defaults.
func DefaultConfig() Config {
	return Config{IdleTimeout: 90 * time.Second, MaxIdlePerHost: 32}
}

// Connector performs a transport dial and protocol handshake, in
// whatever combination the caller needs (typically race.Run over
// dial.TCPDialer candidates, feeding the winner into a
// proto.Handshaker). The pool treats it as opaque — it is the
// "Transport dialer" + "Protocol handshake" collaborator pair of
// spec.md §6.1, composed by the caller.
type Connector func(ctx context.Context) (proto.Connection, error)

// closer is implemented by proto.Connection values that own a
// discardable resource (H1Connection does; H2Connection's lifetime is
// owned by its http2.ClientConn and doesn't need it).
type closer interface {
	Close() error
}

type idleConn struct {
	conn     proto.Connection
	lastUsed time.Time
}

type sharedConn struct {
	conn proto.Connection
}

// inflight is a pool-private single-producer/multi-consumer one-shot,
// the same shape as conninfo.Channel but carrying a connector's
// outcome instead of a handshake's.
type inflight struct {
	done      chan struct{}
	conn      proto.Connection
	shareable bool
}

func newInflight() *inflight { return &inflight{done: make(chan struct{})} }

func (f *inflight) publish(conn proto.Connection, shareable bool) {
	f.conn, f.shareable = conn, shareable
	close(f.done)
}

// await reports (conn, shareable, true) once published, or (nil,
// false, false) if ctx ends first.
func (f *inflight) await(ctx context.Context) (proto.Connection, bool, bool) {
	select {
	case <-f.done:
		return f.conn, f.shareable, true
	case <-ctx.Done():
		return nil, false, false
	}
}

type entry struct {
	idle       []idleConn
	connecting []*inflight
	shared     *sharedConn
}

// Pool is the connection pool of spec.md §4.4. The zero value is not
// usable; construct with New.
type Pool struct {
	mu      sync.Mutex
	entries map[Key]*entry
	cfg     Config
	logger  hclog.Logger
}

// New validates cfg and returns a ready Pool.
func New(cfg Config, logger hclog.Logger) (*Pool, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "pool: invalid config")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pool{entries: make(map[Key]*entry), cfg: cfg, logger: logger.Named("pool")}, nil
}

func (p *Pool) entryLocked(key Key) *entry {
	e, ok := p.entries[key]
	if !ok {
		e = &entry{}
		p.entries[key] = e
	}
	return e
}

// Checkout implements the checkout protocol of spec.md §4.4: shared
// fast path, idle path, coalesce path (only when wantMultiplex),
// dial path. connect is invoked at most once per call that reaches
// the dial path; coalesced waiters that end up needing their own
// connection recurse back into Checkout rather than calling connect
// themselves twice.
func (p *Pool) Checkout(ctx context.Context, key Key, wantMultiplex bool, connect Connector) (*PooledConnection, error) {
	trace := trc.ContextClientTrace(ctx)
	if trace != nil && trace.GetConn != nil {
		trace.GetConn(key.Addr())
	}

	p.mu.Lock()
	e := p.entryLocked(key)

	if e.shared != nil {
		sc := e.shared
		p.mu.Unlock()
		if err := sc.conn.WhenReady(ctx); err != nil {
			p.mu.Lock()
			if cur := p.entries[key]; cur != nil && cur.shared == sc {
				cur.shared = nil
			}
			p.mu.Unlock()
			return p.Checkout(ctx, key, wantMultiplex, connect)
		}
		if trace != nil && trace.GotConn != nil {
			trace.GotConn(trc.GotConnInfo{Reused: true, Shared: true})
		}
		return &PooledConnection{pool: p, key: key, conn: sc.conn, shared: true, trace: trace}, nil
	}

	for len(e.idle) > 0 {
		last := e.idle[len(e.idle)-1]
		e.idle = e.idle[:len(e.idle)-1]
		if p.cfg.IdleTimeout > 0 && time.Since(last.lastUsed) > p.cfg.IdleTimeout {
			p.logger.Trace("dropping expired idle connection", "key", key.String())
			if c, ok := last.conn.(closer); ok {
				c.Close()
			}
			continue
		}
		p.mu.Unlock()
		if trace != nil && trace.GotConn != nil {
			trace.GotConn(trc.GotConnInfo{Reused: true, WasIdle: true, IdleTime: time.Since(last.lastUsed)})
		}
		return &PooledConnection{pool: p, key: key, conn: last.conn, trace: trace}, nil
	}

	if wantMultiplex && len(e.connecting) > 0 {
		f := e.connecting[0]
		p.mu.Unlock()
		conn, shareable, ok := f.await(ctx)
		if !ok {
			return nil, ctx.Err()
		}
		if shareable {
			if trace != nil && trace.GotConn != nil {
				trace.GotConn(trc.GotConnInfo{Reused: true, Shared: true})
			}
			return &PooledConnection{pool: p, key: key, conn: conn, shared: true, trace: trace}, nil
		}
		// HTTP/1 result or failed connector: coalescing only pays off
		// for multiplexable protocols (spec.md §9). Retry from the top.
		return p.Checkout(ctx, key, wantMultiplex, connect)
	}

	f := newInflight()
	e.connecting = append(e.connecting, f)
	p.mu.Unlock()

	conn, err := connect(ctx)

	p.mu.Lock()
	e = p.entryLocked(key)
	e.connecting = removeInflight(e.connecting, f)
	if err != nil {
		p.mu.Unlock()
		f.publish(nil, false)
		return nil, err
	}
	if trace != nil && trace.GotConn != nil {
		trace.GotConn(trc.GotConnInfo{Shared: conn.CanShare()})
	}
	if conn.CanShare() {
		e.shared = &sharedConn{conn: conn}
		p.mu.Unlock()
		f.publish(conn, true)
		return &PooledConnection{pool: p, key: key, conn: conn, shared: true, trace: trace}, nil
	}
	p.mu.Unlock()
	f.publish(nil, false)
	return &PooledConnection{pool: p, key: key, conn: conn, trace: trace}, nil
}

func removeInflight(list []*inflight, target *inflight) []*inflight {
	for i, f := range list {
		if f == target {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// returnConn implements the return protocol of spec.md §4.4: wait for
// the connection to report ready for the next request, then insert it
// at the idle list's head (here: the end, since Checkout pops from
// the end — equivalent LIFO ordering), evicting past MaxIdlePerHost.
func (p *Pool) returnConn(key Key, conn proto.Connection, trace *trc.ClientTrace) {
	if err := conn.WhenReady(context.Background()); err != nil {
		p.logger.Trace("discarding connection that never became ready", "key", key.String(), "error", err)
		if c, ok := conn.(closer); ok {
			c.Close()
		}
		if trace != nil && trace.PutIdleConn != nil {
			trace.PutIdleConn(err)
		}
		return
	}

	p.mu.Lock()
	e := p.entryLocked(key)
	e.idle = append(e.idle, idleConn{conn: conn, lastUsed: time.Now()})

	max := p.cfg.MaxIdlePerHost
	if max > 0 && len(e.idle) > max {
		evict := len(e.idle) - max
		dropped := e.idle[:evict]
		e.idle = e.idle[evict:]
		for _, d := range dropped {
			if c, ok := d.conn.(closer); ok {
				c.Close()
			}
		}
	}
	p.mu.Unlock()

	if trace != nil && trace.PutIdleConn != nil {
		trace.PutIdleConn(nil)
	}
}

// Stats reports a snapshot of a Key's pool entry, for diagnostics and
// the hyperdrivectl CLI.
type Stats struct {
	Idle       int
	Connecting int
	Shared     bool
}

func (p *Pool) Stats(key Key) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		return Stats{}
	}
	return Stats{Idle: len(e.idle), Connecting: len(e.connecting), Shared: e.shared != nil}
}
