package proto

import (
	"testing"

	"golang.org/x/net/http2"
)

func TestSelectHandshakerByALPN(t *testing.T) {
	if _, ok := SelectHandshaker(http2.NextProtoTLS, nil).(H2Handshaker); !ok {
		t.Fatal("negotiated h2 ALPN should select H2Handshaker")
	}
	if _, ok := SelectHandshaker("http/1.1", nil).(H1Handshaker); !ok {
		t.Fatal("negotiated http/1.1 ALPN should select H1Handshaker")
	}
	if _, ok := SelectHandshaker("", nil).(H1Handshaker); !ok {
		t.Fatal("no negotiated ALPN (plaintext) should fall back to H1Handshaker")
	}
}
