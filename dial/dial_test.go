package dial

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alexrudy/hyperdrive/braid"
)

func TestTCPDialerCandidateConnects(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := lis.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	d := &TCPDialer{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stream, err := d.Candidate(lis.Addr().String())(ctx)
	if err != nil {
		t.Fatalf("Candidate: %v", err)
	}
	defer stream.Close()
	if stream.Kind() != braid.KindTCP {
		t.Fatalf("Kind = %v, want tcp", stream.Kind())
	}

	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("server never observed the accept")
	}
}

func TestTCPDialerCandidateRefused(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close() // nothing listens here now

	d := &TCPDialer{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.Candidate(addr)(ctx); err == nil {
		t.Fatal("expected a dial error against a closed listener")
	}
}

func TestUnixDialerCandidateConnects(t *testing.T) {
	addr, err := net.ResolveUnixAddr("unix", t.TempDir()+"/sock")
	if err != nil {
		t.Fatalf("ResolveUnixAddr: %v", err)
	}
	lis, err := net.ListenUnix("unix", addr)
	if err != nil {
		t.Fatalf("ListenUnix: %v", err)
	}
	defer lis.Close()

	go func() {
		c, err := lis.Accept()
		if err == nil {
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream, err := UnixDialer{}.Candidate(addr.String())(ctx)
	if err != nil {
		t.Fatalf("Candidate: %v", err)
	}
	defer stream.Close()
	if stream.Kind() != braid.KindUnix {
		t.Fatalf("Kind = %v, want unix", stream.Kind())
	}
}

func TestDuplexPairEchoes(t *testing.T) {
	client, server := DuplexPair()
	defer client.Close()
	defer server.Close()

	go func() {
		buf := make([]byte, 4)
		server.Read(buf)
		server.Write(buf)
		server.Flush()
	}()

	client.Write([]byte("ping"))
	client.Flush()
	buf := make([]byte, 4)
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want ping", buf)
	}
}
