/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package trc

import (
	"net"
	"time"

	"github.com/alexrudy/hyperdrive/conninfo"
)

// unique type to prevent assignment.
type clientEventContextKey struct{}

// ClientTrace is a set of hooks to run at various stages of a dial,
// handshake, and checkout. Any particular hook may be nil. Functions may
// be called concurrently from different goroutines and some may be
// called after the request has completed or failed.
type ClientTrace struct {
	// GetConn is called before a connection is obtained from the pool
	// or dialed fresh. The hostPort is the pool.Key's Addr().
	GetConn func(hostPort string)

	// GotConn is called after a connection has been checked out,
	// whether freshly dialed, reused from idle, or a shared HTTP/2
	// handle.
	GotConn func(GotConnInfo)

	// PutIdleConn is called when a connection is returned to the idle
	// pool. If err is nil, the connection was accepted into the idle
	// pool (a full pool closes its oldest idle entries instead). If err
	// is non-nil, the connection never became ready for another request
	// and was closed. PutIdleConn is not called for shared connections.
	PutIdleConn func(err error)

	// DNSStart is called when a DNS lookup begins.
	DNSStart func(DNSStartInfo)

	// DNSDone is called when a DNS lookup ends.
	DNSDone func(DNSDoneInfo)

	// ConnectStart is called before a dial candidate's connect begins,
	// excluding lookups. In Happy-Eyeballs racing this may be called
	// multiple times, from multiple goroutines.
	ConnectStart func(network, addr string)

	// ConnectDone is called after a dial candidate's connect completes.
	// It may also be called multiple times, like ConnectStart; a nil
	// err does not mean this candidate won the race.
	ConnectDone func(network, addr string, err error)

	// TLSHandshakeStart is called when the TLS handshake is started.
	TLSHandshakeStart func()

	// TLSHandshakeDone is called after the TLS handshake with either
	// the successful handshake's connection info, or a non-nil error.
	TLSHandshakeDone func(conninfo.Info, error)

	// WroteRequest carries the result of writing the request and any
	// body. No connection in this module calls it; neither
	// proto.H1Connection nor proto.H2Connection fires it.
	WroteRequest func(WroteRequestInfo)
}

// WroteRequestInfo contains information provided to the WroteRequest
// hook.
type WroteRequestInfo struct {
	// Err is any error encountered while writing the Request.
	Err error
}

// DNSStartInfo contains information about a DNS request.
type DNSStartInfo struct {
	Host string
}

// DNSDoneInfo contains information about the results of a DNS lookup.
type DNSDoneInfo struct {
	// Addrs are the addresses found in the DNS lookup. The contents of
	// the slice should not be mutated.
	Addrs []net.IPAddr

	// Err is any error that occurred during the DNS lookup.
	Err error
}

// GotConnInfo is the argument to the ClientTrace.GotConn function and
// contains information about the obtained connection.
type GotConnInfo struct {
	// Reused is whether this connection has been previously used.
	Reused bool

	// WasIdle is whether this connection was obtained from an idle
	// pool.
	WasIdle bool

	// IdleTime reports how long the connection was previously idle,
	// if WasIdle is true.
	IdleTime time.Duration

	// Shared is whether this connection is a shared HTTP/2 handle.
	Shared bool
}
