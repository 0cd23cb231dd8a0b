package client

import (
	"context"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/net/http2"

	"github.com/alexrudy/hyperdrive/braid"
	"github.com/alexrudy/hyperdrive/dial"
	"github.com/alexrudy/hyperdrive/pool"
	"github.com/alexrudy/hyperdrive/proto"
	"github.com/alexrudy/hyperdrive/race"
	"github.com/alexrudy/hyperdrive/trc"
)

// Client is the documented entry point of spec.md §6.2: Request and
// Get. It owns one Pool and dials through one TCPDialer; constructing
// multiple independent Clients (each with its own pool) is how a
// process isolates unrelated connection sets, per spec.md §9's "no
// global state" design note.
type Client struct {
	cfg    Config
	pool   *pool.Pool
	tcp    dial.TCPDialer
	h2     *http2.Transport
	logger hclog.Logger
}

// New builds a Client from cfg, grounded on badu-http/cli's
// DefaultClient wiring and original_source's patron::Client::new_tcp_http.
func New(cfg Config, logger hclog.Logger) (*Client, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "client: invalid config")
	}
	p, err := pool.New(cfg.Pool, logger)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		cfg:    cfg,
		pool:   p,
		tcp:    dial.TCPDialer{KeepAlive: cfg.KeepAlive, NoDelay: cfg.NoDelay},
		h2:     &http2.Transport{},
		logger: logger.Named("client"),
	}, nil
}

// PoolStats reports a snapshot of the pool entry for key, for
// diagnostics and the hyperdrivectl CLI.
func (c *Client) PoolStats(key pool.Key) pool.Stats {
	return c.pool.Stats(key)
}

func (c *Client) stagger() race.Stagger {
	if c.cfg.HappyEyeballsSequential {
		return nil
	}
	return race.Delay(c.cfg.HappyEyeballsDelay)
}

// Get issues a GET to url and returns its response, the convenience
// wrapper spec.md §6.2 names alongside Request.
func (c *Client) Get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.Request(ctx, req)
}

// Request checks out a connection for req's origin, canonicalizes req
// for the connection's protocol, dispatches it, and returns the
// connection to the pool once it reports ready for the next request
// (or discards it on an unrecoverable error), per spec.md §4.4's
// return protocol.
func (c *Client) Request(ctx context.Context, req *http.Request) (*http.Response, error) {
	key, err := pool.KeyFromURL(req.URL)
	if err != nil {
		return nil, errors.Wrap(err, "client: deriving pool key")
	}

	pc, err := c.pool.Checkout(ctx, key, true, c.connector(key))
	if err != nil {
		return nil, errors.Wrap(err, "client: checkout")
	}

	conn := pc.Connection()
	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if _, err := proto.Canonicalize(req, conn.Version(), false); err != nil {
		pc.Release()
		return nil, err
	}

	resp, err := conn.SendRequest(ctx, req)
	if err != nil {
		pc.Discard()
		return nil, errors.Wrap(err, "client: send request")
	}
	pc.Release()
	return resp, nil
}

// connector builds the pool.Connector for key: resolve addresses,
// race Happy-Eyeballs candidates over them, optionally layer TLS, and
// run the protocol handshake the negotiated ALPN selects. This is the
// composition spec.md §2's data flow describes as "connector =
// racer(transport.dial) -> braided stream -> TLS handshake driver ->
// protocol handshake".
func (c *Client) connector(key pool.Key) pool.Connector {
	return func(ctx context.Context) (proto.Connection, error) {
		trace := trc.ContextClientTrace(ctx)
		if trace != nil && trace.DNSStart != nil {
			trace.DNSStart(trc.DNSStartInfo{Host: key.Host})
		}
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, key.Host)
		if trace != nil && trace.DNSDone != nil {
			trace.DNSDone(trc.DNSDoneInfo{Addrs: addrs, Err: err})
		}
		if err != nil {
			return nil, errors.Wrap(err, "client: resolving host")
		}
		if len(addrs) == 0 {
			return nil, errors.Errorf("client: no addresses for %s", key.Host)
		}

		candidates := make([]race.Candidate[braid.Stream], 0, len(addrs))
		for _, a := range addrs {
			addr := net.JoinHostPort(a.IP.String(), key.Port)
			dialAddr := c.tcp.Candidate(addr)
			candidates = append(candidates, func(ctx context.Context) (braid.Stream, error) {
				if c.cfg.DialTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
					defer cancel()
				}
				return dialAddr(ctx)
			})
		}

		stream, err := race.Run(ctx, candidates, c.stagger())
		if err != nil {
			return nil, errors.Wrap(err, "client: dialing")
		}

		alpn := ""
		if key.Scheme == "https" {
			stream, err = braid.AttachTLS(stream, key.Host, c.cfg.tlsConfig())
			if err != nil {
				return nil, errors.Wrap(err, "client: attaching tls")
			}
			if err := stream.FinishHandshake(ctx); err != nil {
				return nil, errors.Wrap(err, "client: tls handshake")
			}
			info, err := stream.Info(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "client: tls info")
			}
			alpn = info.NegotiatedALPN
		}

		handshaker := proto.SelectHandshaker(alpn, c.h2)
		return handshaker.Connect(ctx, stream)
	}
}

// DialUnix returns a Connector dialing a Unix-domain socket instead of
// resolving a hostname, for callers that key their pool on a fixed
// local path (e.g. talking to a sidecar).
func DialUnix(path string) pool.Connector {
	return func(ctx context.Context) (proto.Connection, error) {
		stream, err := dial.UnixDialer{}.Candidate(path)(ctx)
		if err != nil {
			return nil, err
		}
		return proto.H1Handshaker{}.Connect(ctx, stream)
	}
}
