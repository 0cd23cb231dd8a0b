package proto

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/alexrudy/hyperdrive/braid"
)

func TestH1ConnectionSendRequestRoundTrip(t *testing.T) {
	clientStream, serverStream := pipePair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		req, err := http.ReadRequest(newBufReader(serverStream))
		if err != nil {
			t.Errorf("server ReadRequest: %v", err)
			return
		}
		body, _ := io.ReadAll(req.Body)
		resp := &http.Response{
			StatusCode:    http.StatusOK,
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        make(http.Header),
			Body:          io.NopCloser(bytes.NewReader(body)),
			ContentLength: int64(len(body)),
		}
		resp.Write(serverStream)
		serverStream.Flush()
	}()

	conn, err := H1Handshaker{}.Connect(context.Background(), clientStream)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.Version() != H1 {
		t.Fatalf("Version = %v, want H1", conn.Version())
	}
	if conn.CanShare() {
		t.Fatal("an H1Connection must never report CanShare")
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", bytes.NewBufferString("ping"))
	if err != nil {
		t.Fatal(err)
	}
	req.ContentLength = 4
	if _, err := Canonicalize(req, H1, false); err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}

	resp, err := conn.SendRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ping" {
		t.Fatalf("body = %q, want ping", body)
	}
	<-done

	if err := conn.WhenReady(context.Background()); err != nil {
		t.Fatalf("WhenReady: %v", err)
	}
}

func TestH1ConnectionClosedAfterClose(t *testing.T) {
	clientStream, _ := pipePair(t)
	conn, err := H1Handshaker{}.Connect(context.Background(), clientStream)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	h1 := conn.(*H1Connection)
	if err := h1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h1.WhenReady(context.Background()); err != ErrConnectionClosed {
		t.Fatalf("WhenReady after Close = %v, want ErrConnectionClosed", err)
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if _, err := h1.SendRequest(context.Background(), req); err != ErrConnectionClosed {
		t.Fatalf("SendRequest after Close = %v, want ErrConnectionClosed", err)
	}
}

func TestH1ConnectionWhenReadyBlocksUntilBodyDrained(t *testing.T) {
	clientStream, serverStream := pipePair(t)

	go func() {
		req, err := http.ReadRequest(newBufReader(serverStream))
		if err != nil {
			t.Errorf("server ReadRequest: %v", err)
			return
		}
		io.ReadAll(req.Body)
		resp := &http.Response{
			StatusCode:    http.StatusOK,
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        make(http.Header),
			Body:          io.NopCloser(bytes.NewReader([]byte("pong"))),
			ContentLength: 4,
		}
		resp.Write(serverStream)
		serverStream.Flush()
	}()

	conn, err := H1Handshaker{}.Connect(context.Background(), clientStream)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := conn.SendRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	ready := make(chan error, 1)
	go func() { ready <- conn.WhenReady(context.Background()) }()

	select {
	case <-ready:
		t.Fatal("WhenReady returned before the response body was drained")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatalf("reading body: %v", err)
	}

	select {
	case err := <-ready:
		if err != nil {
			t.Fatalf("WhenReady: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WhenReady never unblocked after the body was drained")
	}
}

func TestH1ConnectionWhenReadyUnblocksOnExplicitClose(t *testing.T) {
	clientStream, serverStream := pipePair(t)

	go func() {
		req, err := http.ReadRequest(newBufReader(serverStream))
		if err != nil {
			t.Errorf("server ReadRequest: %v", err)
			return
		}
		io.ReadAll(req.Body)
		resp := &http.Response{
			StatusCode:    http.StatusOK,
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        make(http.Header),
			Body:          io.NopCloser(bytes.NewReader([]byte("pong"))),
			ContentLength: 4,
		}
		resp.Write(serverStream)
		serverStream.Flush()
	}()

	conn, err := H1Handshaker{}.Connect(context.Background(), clientStream)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := conn.SendRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	// A caller that closes the body without reading it to EOF (e.g. on
	// an early abort) still releases WhenReady's waiters.
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.WhenReady(context.Background()); err != nil {
		t.Fatalf("WhenReady: %v", err)
	}
}

func pipePair(t *testing.T) (braid.Stream, braid.Stream) {
	t.Helper()
	c, s := netPipe()
	return braid.NewDuplex(c), braid.NewDuplex(s)
}
