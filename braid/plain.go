package braid

import (
	"bufio"
	"context"
	"net"

	"github.com/alexrudy/hyperdrive/conninfo"
)

// plain wraps a net.Conn-shaped carrier with buffered writes. It backs
// the Tcp, Unix, and Duplex variants; they differ only in Kind and in
// which constructor produced the underlying net.Conn.
type plain struct {
	net.Conn
	kind Kind
	bw   *bufio.Writer
}

func newPlain(kind Kind, c net.Conn) *plain {
	p := &plain{Conn: c, kind: kind}
	p.bw = bufio.NewWriter(c)
	return p
}

func (p *plain) Write(b []byte) (int, error) {
	return p.bw.Write(b)
}

func (p *plain) Flush() error {
	return p.bw.Flush()
}

func (p *plain) Shutdown() error {
	if err := p.bw.Flush(); err != nil {
		p.Conn.Close()
		return err
	}
	return p.Conn.Close()
}

func (p *plain) Kind() Kind {
	return p.kind
}

// Info returns synchronously: plain carriers have no handshake to
// await.
func (p *plain) Info(ctx context.Context) (conninfo.Info, error) {
	return conninfo.Info{
		LocalAddr:  p.Conn.LocalAddr(),
		RemoteAddr: p.Conn.RemoteAddr(),
	}, nil
}

// FinishHandshake is a no-op for plain carriers.
func (p *plain) FinishHandshake(ctx context.Context) error {
	return nil
}

// NewTCP wraps an established TCP net.Conn (typically from
// dial.TCPDialer.Candidate or net.Listener.Accept) as a Stream.
func NewTCP(c net.Conn) Stream {
	return newPlain(KindTCP, c)
}

// NewUnix wraps an established Unix-domain net.Conn as a Stream.
func NewUnix(c net.Conn) Stream {
	return newPlain(KindUnix, c)
}

// NewDuplex wraps one half of an in-memory duplex pair (net.Pipe, or
// any equivalent) as a Stream. It's the carrier used by tests and by
// in-process client/server pairing (spec.md §8 scenario 1).
func NewDuplex(c net.Conn) Stream {
	return newPlain(KindDuplex, c)
}
