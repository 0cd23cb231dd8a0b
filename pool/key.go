package pool

import (
	"net"
	"net/url"

	"golang.org/x/net/idna"
)

// Key identifies a pool bucket: the (scheme, host, port) tuple
// spec.md §3 derives from a request URI. Two requests share a Key iff
// their origins collide, grounded on badu-http's
// tport/connect_method.go connectMethodKey — simplified to drop the
// proxy field, since this core treats a proxy as one more race.Candidate
// at the dial layer rather than a pool-keying dimension (spec.md §9).
type Key struct {
	Scheme string
	Host   string
	Port   string
}

// KeyFromURL derives a Key from a request URI, lowercasing and
// IDNA-normalizing the host so e.g. "ドメイン.example" and its
// punycode form share a bucket.
func KeyFromURL(u *url.URL) (Key, error) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return Key{}, err
	}
	return Key{Scheme: u.Scheme, Host: ascii, Port: port}, nil
}

// Addr is the "host:port" form suitable for transport dialing.
func (k Key) Addr() string {
	return net.JoinHostPort(k.Host, k.Port)
}

func (k Key) String() string {
	return k.Scheme + "://" + k.Addr()
}

func defaultPort(scheme string) string {
	if scheme == "https" || scheme == "wss" {
		return "443"
	}
	return "80"
}
