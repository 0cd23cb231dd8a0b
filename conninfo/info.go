// Package conninfo describes the metadata a braided stream publishes
// about the connection underneath it: addresses, and, once a TLS
// handshake finishes, the negotiated protocol and peer identity.
package conninfo

import (
	"crypto/x509"
	"net"
)

// Info is immutable once published on a Channel.
type Info struct {
	LocalAddr  net.Addr
	RemoteAddr net.Addr

	// NegotiatedALPN is empty for non-TLS streams and for TLS streams
	// where the peer didn't offer ALPN.
	NegotiatedALPN string

	// PeerCertificates is nil unless the stream is TLS and the peer
	// presented a certificate chain.
	PeerCertificates []*x509.Certificate
}

// TLS reports whether this Info carries TLS handshake results: a
// negotiated ALPN protocol or peer certificates. A Tls stream whose
// peer offered neither (e.g. the server side of a handshake without
// client certificates or ALPN) reports false.
func (i Info) TLS() bool {
	return i.NegotiatedALPN != "" || len(i.PeerCertificates) > 0
}
