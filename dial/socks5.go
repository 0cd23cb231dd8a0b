package dial

import (
	"context"
	"net"
	"net/url"

	xproxy "golang.org/x/net/proxy"

	"github.com/alexrudy/hyperdrive/braid"
	"github.com/alexrudy/hyperdrive/race"
)

// oneConnDialer replays a single already-dialed net.Conn to whatever
// calls Dial once, matching badu-http's one_conn_dialer.go: the
// golang.org/x/net/proxy SOCKS5 client wants a proxy.Dialer to hand
// it the already-open TCP connection to the proxy.
type oneConnDialer struct{ conn net.Conn }

func (d *oneConnDialer) Dial(network, addr string) (net.Conn, error) {
	if d.conn == nil {
		return nil, net.ErrClosed
	}
	c := d.conn
	d.conn = nil
	return c, nil
}

// SOCKS5Candidate dials proxyAddr over TCP and then tunnels to
// targetAddr through it via SOCKS5, as one more race.Candidate. It's
// only wired when a caller explicitly configures a proxy URL
// (spec.md §9's open question on proxy intent is not inferred here).
func SOCKS5Candidate(proxyAddr, targetAddr string, proxyURL *url.URL) race.Candidate[braid.Stream] {
	return func(ctx context.Context) (braid.Stream, error) {
		var nd net.Dialer
		conn, err := nd.DialContext(ctx, "tcp", proxyAddr)
		if err != nil {
			return nil, err
		}

		var auth *xproxy.Auth
		if u := proxyURL.User; u != nil {
			auth = &xproxy.Auth{User: u.Username()}
			auth.Password, _ = u.Password()
		}

		p, err := xproxy.SOCKS5("tcp", proxyAddr, auth, &oneConnDialer{conn: conn})
		if err != nil {
			conn.Close()
			return nil, err
		}
		tunneled, err := p.Dial("tcp", targetAddr)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return braid.NewTCP(tunneled), nil
	}
}
