package transport

import (
	"context"
	"net/http"

	"github.com/amp-labs/statecrawler/envutil"
)

// Option configures a transport.
type Option func(*config)

// config is comparable so it can key the shared instances.
type config struct {
	Override                 http.RoundTripper
	DisableConnectionPooling bool
	EnableDNSCache           bool
	InsecureTLS              bool
	Decompress               bool
}

// DisableConnectionPooling turns off keep-alive and connection reuse.
func DisableConnectionPooling(c *config) {
	c.DisableConnectionPooling = true
}

// EnableDNSCache dials through a caching resolver.
func EnableDNSCache(c *config) {
	c.EnableDNSCache = true
}

// InsecureTLS skips certificate verification. Only for test systems.
func InsecureTLS(c *config) {
	c.InsecureTLS = true
}

// Decompress decodes every Content-Encoding httpdecompressor supports
// (gzip, deflate, br, zstd, snappy, lz4) instead of only gzip.
func Decompress(c *config) {
	c.Decompress = true
}

// WithTransportOverride makes Get return transport unchanged.
func WithTransportOverride(transport http.RoundTripper) Option {
	return func(c *config) {
		c.Override = transport
	}
}

func readOptions(ctx context.Context, opts ...Option) config {
	cfg := config{
		DisableConnectionPooling: !envutil.Bool(ctx, "HTTP_TRANSPORT_PREFER_POOLED",
			envutil.Default(true)).ValueOrElse(true),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
