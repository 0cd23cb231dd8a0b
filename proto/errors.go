package proto

import "fmt"

// UnsupportedProtocolError is returned when a request's wire version
// doesn't match what the checked-out connection speaks: an
// HTTP/2-versioned request on an HTTP/1.1 connection, or CONNECT on
// HTTP/2 (spec.md §4.4, §7). It's surfaced immediately, before
// anything is written to the wire, and the connection is left
// unharmed — the pool returns it unused (spec.md §8 scenario 7).
type UnsupportedProtocolError struct {
	Connection Version
	Requested  string
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("proto: %s requested on a %s connection", e.Requested, e.Connection)
}

// InvalidMethodError is returned when CONNECT is combined with a
// non-authority request target.
type InvalidMethodError struct {
	Method string
	Target string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("proto: method %s requires an authority-form target, got %q", e.Method, e.Target)
}
