// Command hyperdrivectl is a thin CLI exercising client.DecodeConfig:
// it issues one request and prints the response status, headers, and
// the pool's resulting idle/connecting counts for the request's
// origin. It plays the same role badu-http's cli package does for
// net/http — an ambient, example-grade surface over the core, not
// part of the core itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alexrudy/hyperdrive/client"
	"github.com/alexrudy/hyperdrive/pool"
)

func main() {
	var (
		method      = flag.String("method", "GET", "HTTP method")
		insecure    = flag.Bool("insecure", false, "skip TLS certificate verification")
		sequential  = flag.Bool("sequential", false, "dial Happy-Eyeballs candidates strictly sequentially")
		dialTimeout = flag.Duration("dial-timeout", 30*time.Second, "per-candidate dial timeout")
		userAgent   = flag.String("user-agent", "", "override the default User-Agent header")
		logLevel    = flag.String("log-level", "info", "hclog level (trace, debug, info, warn, error)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	target := flag.Arg(0)

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "hyperdrivectl",
		Level: hclog.LevelFromString(*logLevel),
	})

	if err := run(*method, target, *insecure, *sequential, *dialTimeout, *userAgent, logger); err != nil {
		logger.Error("request failed", "error", err)
		os.Exit(1)
	}
}

// run builds its Config from a loosely-typed options map via
// client.DecodeConfig, the mapstructure decode-then-validate path
// SPEC_FULL.md §A.2 names this command as the example caller of.
func run(method, target string, insecure, sequential bool, dialTimeout time.Duration, userAgent string, logger hclog.Logger) error {
	opts := map[string]any{
		"dial_timeout":              dialTimeout,
		"happy_eyeballs_sequential": sequential,
		"tls_insecure_skip_verify":  insecure,
	}
	if userAgent != "" {
		opts["user_agent"] = userAgent
	}
	cfg, err := client.DecodeConfig(opts)
	if err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	c, err := client.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if method != "GET" {
		return fmt.Errorf("unsupported method %q (hyperdrivectl only issues GET)", method)
	}
	resp, err := c.Get(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Printf("%s %d\n", resp.Proto, resp.StatusCode)
	for k, vv := range resp.Header {
		for _, v := range vv {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	fmt.Println()
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return err
	}

	u, err := url.Parse(target)
	if err == nil {
		if key, err := pool.KeyFromURL(u); err == nil {
			stats := c.PoolStats(key)
			logger.Info("pool stats", "key", key.String(), "idle", stats.Idle, "connecting", stats.Connecting, "shared", stats.Shared)
		}
	}
	return nil
}
