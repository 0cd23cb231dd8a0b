package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// LazyClient defers constructing the underlying Client — and
// therefore its Pool, http2.Transport, and TCPDialer — until the
// first Request or Get call, grounded on original_source's
// patron::lazy::Lazy future: a builder captured by value costs
// nothing to construct and pay for its collaborators only once a
// caller actually needs them.
type LazyClient struct {
	cfg    Config
	logger hclog.Logger

	once   sync.Once
	client *Client
	err    error
}

// NewLazy returns a LazyClient that will build itself from cfg on
// first use.
func NewLazy(cfg Config, logger hclog.Logger) *LazyClient {
	return &LazyClient{cfg: cfg, logger: logger}
}

func (l *LazyClient) resolve() (*Client, error) {
	l.once.Do(func() {
		l.client, l.err = New(l.cfg, l.logger)
	})
	return l.client, l.err
}

func (l *LazyClient) Request(ctx context.Context, req *http.Request) (*http.Response, error) {
	c, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return c.Request(ctx, req)
}

func (l *LazyClient) Get(ctx context.Context, target string) (*http.Response, error) {
	c, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, target)
}
