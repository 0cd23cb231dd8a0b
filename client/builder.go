package client

import (
	"crypto/x509"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alexrudy/hyperdrive/pool"
)

// Builder assembles a Config fluently, grounded on
// original_source/hyperdriver's client::clients::builder::Builder:
// each setter mutates and returns the Builder so calls chain.
type Builder struct {
	cfg    Config
	logger hclog.Logger
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

func (b *Builder) DialTimeout(d time.Duration) *Builder {
	b.cfg.DialTimeout = d
	return b
}

func (b *Builder) HappyEyeballsDelay(d time.Duration) *Builder {
	b.cfg.HappyEyeballsDelay = d
	b.cfg.HappyEyeballsSequential = false
	return b
}

func (b *Builder) Sequential() *Builder {
	b.cfg.HappyEyeballsSequential = true
	return b
}

func (b *Builder) KeepAlive(d time.Duration) *Builder {
	b.cfg.KeepAlive = d
	return b
}

func (b *Builder) UserAgent(ua string) *Builder {
	b.cfg.UserAgent = ua
	return b
}

func (b *Builder) Pool(cfg pool.Config) *Builder {
	b.cfg.Pool = cfg
	return b
}

func (b *Builder) TLSRoots(roots *x509.CertPool) *Builder {
	b.cfg.TLSRootCAs = roots
	return b
}

func (b *Builder) InsecureSkipVerify() *Builder {
	b.cfg.TLSInsecureSkipVerify = true
	return b
}

func (b *Builder) Logger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the accumulated Config and constructs a Client.
func (b *Builder) Build() (*Client, error) {
	return New(b.cfg, b.logger)
}

// BuildLazy returns a LazyClient that defers construction until first
// use; Build's validation therefore only happens then too.
func (b *Builder) BuildLazy() *LazyClient {
	return NewLazy(b.cfg, b.logger)
}
