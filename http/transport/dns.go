package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/dnscache"
)

const dnsRefreshInterval = 5 * time.Minute

var errNoAddresses = errors.New("no addresses resolved")

// dnsResolver is shared by every transport that enables DNS caching.
var dnsResolver = newResolver() //nolint:gochecknoglobals

func newResolver() *dnscache.Resolver {
	resolver := &dnscache.Resolver{}

	go func() {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()

		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	return resolver
}

// cachedDialContext resolves hosts through dnsResolver and dials each
// address in turn until one connects.
func cachedDialContext(dialer *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network string, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := dnsResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		lastErr := errNoAddresses

		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}

			lastErr = err
		}

		return nil, lastErr
	}
}
