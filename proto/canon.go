package proto

import (
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/idna"
	"golang.org/x/net/lex/httplex"
)

// DefaultUserAgent is inserted when a request carries none (spec.md
// §4.4).
const DefaultUserAgent = "hyperdrive/1.0"

// Form is the request-target form the request line should use.
type Form int

const (
	FormOrigin Form = iota
	FormAbsolute
	FormAuthority
)

// Canonicalize applies spec.md §4.4's dispatch-time rules to req for
// a connection speaking version, returning the request-target Form
// the caller's wire writer should use. It is idempotent: calling it
// twice on the same *http.Request leaves it unchanged the second time
// (a User-Agent, or a Host set to something other than req.URL.Host,
// is preserved verbatim, per spec.md §8).
//
// proxy indicates the request is being dispatched through an explicit
// forward proxy; when true, HTTP/1.1 requests always use absolute-form
// regardless of whether scheme/authority are present. This is the one
// deliberate extension point spec.md §9 leaves open for implementers
// adding proxy support — it is never inferred, only requested.
func Canonicalize(req *http.Request, version Version, proxy bool) (Form, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}
	if err := validateHeaders(req.Header); err != nil {
		return 0, err
	}

	switch version {
	case H1:
		return canonicalizeH1(req, proxy)
	case H2:
		if req.Method == http.MethodConnect {
			return 0, &UnsupportedProtocolError{Connection: H2, Requested: "CONNECT"}
		}
		if err := canonicalizeHost(req); err != nil {
			return 0, err
		}
		return FormAbsolute, nil
	default:
		return 0, fmt.Errorf("proto: unknown connection version %v", version)
	}
}

func canonicalizeH1(req *http.Request, proxy bool) (Form, error) {
	if req.ProtoAtLeast(2, 0) {
		return 0, &UnsupportedProtocolError{Connection: H1, Requested: "HTTP/2"}
	}

	if req.Method == http.MethodConnect {
		if req.URL.Path != "" && req.URL.Path != "/" {
			return 0, &InvalidMethodError{Method: req.Method, Target: req.URL.Path}
		}
		if err := canonicalizeHost(req); err != nil {
			return 0, err
		}
		applyForm(req, FormAuthority)
		return FormAuthority, nil
	}

	if err := canonicalizeHost(req); err != nil {
		return 0, err
	}
	if proxy || req.URL.Scheme == "" || req.URL.Host == "" {
		applyForm(req, FormAbsolute)
		return FormAbsolute, nil
	}
	applyForm(req, FormOrigin)
	return FormOrigin, nil
}

// applyForm rewrites req.URL.Opaque so that net/http's own
// Request.Write (the wire codec H1Connection treats as opaque, per
// spec.md §1) emits the chosen request-target form. RequestURI()
// returns u.Opaque, prefixed with the scheme only when it starts with
// "//", followed by "?"+RawQuery when a query is present — so the
// absolute-form Opaque is built without the query. Request.write has
// its own CONNECT-with-empty-Path special case that uses the Opaque
// value — so authority-form needs nothing more than clearing Path and
// RawQuery and pointing Opaque at the host.
//
// Recomputing from Scheme/Host/Path on every call (rather than
// trusting a previously-set Opaque) is what makes this idempotent: a
// second call reproduces the same Opaque value.
func applyForm(req *http.Request, form Form) {
	switch form {
	case FormOrigin:
		req.URL.Opaque = ""
	case FormAbsolute:
		u := *req.URL
		u.Opaque = ""
		u.RawQuery = ""
		u.ForceQuery = false
		req.URL.Opaque = u.String()
	case FormAuthority:
		req.URL.Opaque = req.Host
		req.URL.Path = ""
		req.URL.RawQuery = ""
	}
}

// canonicalizeHost inserts req.Host from req.URL if absent, trimming
// a port that matches the scheme's default (spec.md §8 scenario 6).
// A Host equal to req.URL.Host (as http.NewRequest sets it) counts as
// derived from the URI and gets the same trimming; any other
// already-present Host is preserved verbatim.
func canonicalizeHost(req *http.Request) error {
	if req.Host != "" && (req.URL == nil || req.Host != req.URL.Host) {
		return nil
	}
	if req.URL == nil || req.URL.Host == "" {
		return fmt.Errorf("proto: request has no host")
	}
	ascii, err := idnaASCII(req.URL.Host)
	if err != nil {
		return fmt.Errorf("proto: invalid host %q: %w", req.URL.Host, err)
	}
	req.Host = trimDefaultPort(ascii, req.URL.Scheme)
	return nil
}

func trimDefaultPort(host, scheme string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host // no port present
	}
	if port == defaultPort(scheme) {
		return h
	}
	return host
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

func idnaASCII(host string) (string, error) {
	if isASCII(host) {
		return host, nil
	}
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return idna.Lookup.ToASCII(host)
	}
	a, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(a, port), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func validateHeaders(h http.Header) error {
	for k, vv := range h {
		if !httplex.ValidHeaderFieldName(k) {
			return fmt.Errorf("proto: invalid header field name %q", k)
		}
		for _, v := range vv {
			if !httplex.ValidHeaderFieldValue(v) {
				return fmt.Errorf("proto: invalid header field value %q for key %v", v, k)
			}
		}
	}
	return nil
}
