package conninfo

import (
	"context"
	"sync"
)

// Channel is a single-producer, multi-consumer one-shot. Publish may
// be called exactly once; every Await call, whether it started before
// or after Publish, observes the same (Info, error) pair.
//
// The zero value is not usable; use NewChannel.
type Channel struct {
	mu   sync.Mutex
	done chan struct{}
	info Info
	err  error
}

// NewChannel returns a Channel with no value published yet.
func NewChannel() *Channel {
	return &Channel{done: make(chan struct{})}
}

// Publish records the handshake outcome and wakes every current and
// future Await caller. Calling Publish more than once is a programmer
// error and panics (unlike braid's double-wrap error, which AttachTLS
// returns as ErrAlreadyTLS).
func (c *Channel) Publish(info Info, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		panic("conninfo: Channel.Publish called more than once")
	default:
	}
	c.info, c.err = info, err
	close(c.done)
}

// Await suspends until Publish is called, or ctx is done, whichever
// happens first.
func (c *Channel) Await(ctx context.Context) (Info, error) {
	select {
	case <-c.done:
		return c.info, c.err
	case <-ctx.Done():
		return Info{}, ctx.Err()
	}
}

// Ready reports whether Publish has already happened, without
// blocking.
func (c *Channel) Ready() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
