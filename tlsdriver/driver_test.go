package tlsdriver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"
)

func selfSignedPair(t *testing.T) (server, client *tls.Conn) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "hyperdrive-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"hyperdrive-test"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	pool := x509.NewCertPool()
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	pool.AddCert(parsed)

	c, s := net.Pipe()
	server = tls.Server(s, &tls.Config{Certificates: []tls.Certificate{cert}})
	client = tls.Client(c, &tls.Config{RootCAs: pool, ServerName: "hyperdrive-test"})
	return server, client
}

func TestDriverStateTransitionsToReady(t *testing.T) {
	server, client := selfSignedPair(t)
	defer server.Close()
	defer client.Close()

	d := New(client)
	if d.State() != Pending {
		t.Fatalf("initial State = %v, want Pending", d.State())
	}

	go server.HandshakeContext(context.Background())

	if err := d.Finish(context.Background()); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if d.State() != Ready {
		t.Fatalf("State after Finish = %v, want Ready", d.State())
	}
	if d.Poisoned() != nil {
		t.Fatal("a successful handshake should not be poisoned")
	}

	info, err := d.Channel().Await(context.Background())
	if err != nil {
		t.Fatalf("Channel Await: %v", err)
	}
	if !info.TLS() {
		t.Fatal("a successful handshake's Info should report TLS")
	}
}

func TestDriverTouchCoalescesConcurrentCallers(t *testing.T) {
	server, client := selfSignedPair(t)
	defer server.Close()
	defer client.Close()

	d := New(client)
	go server.HandshakeContext(context.Background())

	done := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() { done <- d.Finish(context.Background()) }()
	}
	for i := 0; i < 5; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Finish: %v", err)
		}
	}
	if d.State() != Ready {
		t.Fatalf("State = %v, want Ready", d.State())
	}
}
