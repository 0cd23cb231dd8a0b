package accept

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alexrudy/hyperdrive/braid"
)

func TestTCPAcceptorAcceptsPlaintext(t *testing.T) {
	lis, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	a := &TCPAcceptor{Listener: lis}
	defer a.Close()

	dialDone := make(chan error, 1)
	go func() {
		conn, err := net.DialTimeout("tcp", a.Addr().String(), time.Second)
		if err == nil {
			conn.Close()
		}
		dialDone <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream, err := a.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer stream.Close()

	if stream.Kind() != braid.KindTCP {
		t.Errorf("Kind = %v, want tcp", stream.Kind())
	}
	if err := <-dialDone; err != nil {
		t.Fatalf("dial: %v", err)
	}
}

func TestTCPAcceptorRespectsContext(t *testing.T) {
	lis, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	a := &TCPAcceptor{Listener: lis}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := a.Accept(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Accept error = %v, want context.DeadlineExceeded", err)
	}
}

func TestUnixAcceptorAccepts(t *testing.T) {
	addr, err := net.ResolveUnixAddr("unix", t.TempDir()+"/sock")
	if err != nil {
		t.Fatalf("ResolveUnixAddr: %v", err)
	}
	lis, err := net.ListenUnix("unix", addr)
	if err != nil {
		t.Fatalf("ListenUnix: %v", err)
	}
	a := &UnixAcceptor{Listener: lis}
	defer a.Close()

	dialDone := make(chan error, 1)
	go func() {
		conn, err := net.DialTimeout("unix", addr.String(), time.Second)
		if err == nil {
			conn.Close()
		}
		dialDone <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream, err := a.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer stream.Close()
	if stream.Kind() != braid.KindUnix {
		t.Errorf("Kind = %v, want unix", stream.Kind())
	}
	if err := <-dialDone; err != nil {
		t.Fatalf("dial: %v", err)
	}
}
