// Package client implements the Client.Request/Client.Get entry points
// of spec.md §6.2, wiring together dial, race, braid, tlsdriver, proto,
// and pool into the data flow spec.md §2 describes: caller ->
// pool.Checkout(key) -> (cache hit | start connector) -> connector =
// race.Run(dial candidates) -> braid stream -> TLS handshake -> protocol
// handshake -> pooled connection -> dispatch.
package client

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/alexrudy/hyperdrive/pool"
)

// Config is the Client's declarative configuration, decoded from an
// options map with mitchellh/mapstructure the way badu-http/cli's
// Options/Transport settings are assembled, and validated with
// go-playground/validator the way the pool's own Config is.
type Config struct {
	// DialTimeout bounds a single TCP dial attempt.
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"omitempty,gt=0"`

	// HappyEyeballsDelay staggers candidate dials (spec.md §6.4). Zero
	// spawns every resolved address immediately; it's ignored when
	// HappyEyeballsSequential is set.
	HappyEyeballsDelay time.Duration `mapstructure:"happy_eyeballs_delay" validate:"omitempty,gte=0"`

	// HappyEyeballsSequential forces strictly-sequential dialing
	// (race.Stagger's nil case) instead of staggered concurrency.
	HappyEyeballsSequential bool `mapstructure:"happy_eyeballs_sequential"`

	KeepAlive time.Duration `mapstructure:"keepalive" validate:"omitempty,gte=0"`
	NoDelay   bool          `mapstructure:"nodelay"`

	UserAgent string `mapstructure:"user_agent"`

	Pool pool.Config `mapstructure:"pool"`

	// TLSRootCAs overrides the system root pool when non-nil.
	TLSRootCAs *x509.CertPool `mapstructure:"-"`

	// TLSInsecureSkipVerify disables certificate validation. Real
	// certificate validation logic is delegated to crypto/tls itself
	// (spec.md §1's Non-goals) — this only toggles whether it runs.
	TLSInsecureSkipVerify bool `mapstructure:"tls_insecure_skip_verify"`
}

// DefaultConfig matches spec.md §6.4's stated defaults: a 5ms
// Happy-Eyeballs stagger (RFC 8305's recommended floor), a 90s idle
// timeout, and 32 idle connections per host.
func DefaultConfig() Config {
	return Config{
		DialTimeout:        30 * time.Second,
		HappyEyeballsDelay: 5 * time.Millisecond,
		KeepAlive:          30 * time.Second,
		UserAgent:          "hyperdrive/1.0",
		Pool:               pool.DefaultConfig(),
	}
}

// DecodeConfig overlays opts onto DefaultConfig() via mapstructure and
// validates the result.
func DecodeConfig(opts map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if opts != nil {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return Config{}, errors.Wrap(err, "client: building option decoder")
		}
		if err := decoder.Decode(opts); err != nil {
			return Config{}, errors.Wrap(err, "client: decoding options")
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "client: invalid config")
	}
	return cfg, nil
}

func (c Config) tlsConfig() *tls.Config {
	return &tls.Config{
		RootCAs:            c.TLSRootCAs,
		InsecureSkipVerify: c.TLSInsecureSkipVerify,
		NextProtos:         []string{"h2", "http/1.1"},
	}
}
