// Package transport builds the HTTP round trippers used to drive a system
// under test: pooled or unpooled connections, an optional DNS cache, and
// response decompression.
//
// The following environment variables tune the transports:
//
//   - HTTP_TRANSPORT_PREFER_POOLED: enable connection pooling by default (default: true)
//   - HTTP_TRANSPORT_MAX_IDLE_CONNS: maximum idle connections (default: 100)
//   - HTTP_TRANSPORT_IDLE_CONN_TIMEOUT: idle connection timeout (default: 90s)
//   - HTTP_TRANSPORT_TLS_HANDSHAKE_TIMEOUT: TLS handshake timeout (default: 10s)
//   - HTTP_TRANSPORT_DIAL_TIMEOUT: connection dial timeout (default: 30s)
//   - HTTP_TRANSPORT_DIAL_KEEPALIVE: TCP keep-alive duration (default: 30s)
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/amp-labs/statecrawler/envutil"
)

const (
	defaultIdleConnTimeout       = 90 * time.Second
	defaultMaxIdleConns          = 100
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultTransportDialTimeout  = 30 * time.Second
	defaultKeepAlive             = 30 * time.Second
)

// New returns a new http.RoundTripper configured by options and the
// environment. Prefer Get, which shares one instance per configuration.
func New(ctx context.Context, options ...Option) http.RoundTripper {
	return create(ctx, readOptions(ctx, options...))
}

// create builds a round tripper from cfg.
func create(ctx context.Context, cfg config) http.RoundTripper {
	maxIdleConns := envutil.Int(ctx, "HTTP_TRANSPORT_MAX_IDLE_CONNS",
		envutil.Default(defaultMaxIdleConns)).
		ValueOrElse(defaultMaxIdleConns)

	idleConnTimeout := envutil.Duration(ctx, "HTTP_TRANSPORT_IDLE_CONN_TIMEOUT",
		envutil.Default(defaultIdleConnTimeout)).
		ValueOrElse(defaultIdleConnTimeout)

	tlsHandshakeTimeout := envutil.Duration(ctx, "HTTP_TRANSPORT_TLS_HANDSHAKE_TIMEOUT",
		envutil.Default(defaultTLSHandshakeTimeout)).
		ValueOrElse(defaultTLSHandshakeTimeout)

	dialTimeout := envutil.Duration(ctx, "HTTP_TRANSPORT_DIAL_TIMEOUT",
		envutil.Default(defaultTransportDialTimeout)).
		ValueOrElse(defaultTransportDialTimeout)

	keepAlive := envutil.Duration(ctx, "HTTP_TRANSPORT_DIAL_KEEPALIVE",
		envutil.Default(defaultKeepAlive)).
		ValueOrElse(defaultKeepAlive)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		DisableKeepAlives:     cfg.DisableConnectionPooling,
		DisableCompression:    cfg.Decompress,
	}

	if cfg.EnableDNSCache {
		transport.DialContext = cachedDialContext(dialer)
	}

	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec
		}
	}

	if cfg.Decompress {
		return NewDecompressor(transport)
	}

	return transport
}

var instances sync.Map //nolint:gochecknoglobals

// Get returns the round tripper stored in ctx by WithTransport, or else a
// shared instance for the given options.
func Get(ctx context.Context, opts ...Option) http.RoundTripper {
	if tr := getTransportFromContext(ctx); tr != nil {
		return tr
	}

	cfg := readOptions(ctx, opts...)
	if cfg.Override != nil {
		return cfg.Override
	}

	if tr, ok := instances.Load(cfg); ok {
		return tr.(http.RoundTripper) //nolint:forcetypeassert
	}

	tr, _ := instances.LoadOrStore(cfg, create(ctx, cfg))

	return tr.(http.RoundTripper) //nolint:forcetypeassert
}
