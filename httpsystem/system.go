// Package httpsystem binds a crawl to a system reached over HTTP:
// transitions send requests and states verify what the system responds.
package httpsystem

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/amp-labs/statecrawler/http/transport"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
)

// MetadataKey is the state metadata entry holding a probe request.
const MetadataKey = "probe"

const defaultTimeout = 30 * time.Second

// System sends requests relative to a base URL and remembers the last
// response, so that a state reached by a request can verify its result.
type System struct {
	base    *url.URL
	client  *http.Client
	headers http.Header

	mu   sync.Mutex
	last *Response
}

var _ statemachine.Observer = (*System)(nil)

type options struct {
	roundTripper http.RoundTripper
	headers      http.Header
	timeout      time.Duration
	insecure     bool
}

// Option configures a System.
type Option func(*options)

// WithRoundTripper sends requests through rt instead of the shared
// transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) Option {
	return func(o *options) {
		o.headers.Add(name, value)
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithInsecureTLS skips certificate verification.
func WithInsecureTLS() Option {
	return func(o *options) {
		o.insecure = true
	}
}

// New creates a System for baseURL. Requests go through the shared
// transport with DNS caching and decompression, and are logged at debug
// level.
func New(ctx context.Context, baseURL string, opts ...Option) (*System, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	o := &options{headers: make(http.Header), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	transportOpts := []transport.Option{transport.EnableDNSCache, transport.Decompress}
	if o.insecure {
		transportOpts = append(transportOpts, transport.InsecureTLS)
	}

	if o.roundTripper != nil {
		transportOpts = append(transportOpts, transport.WithTransportOverride(o.roundTripper))
	}

	return &System{
		base:    base,
		headers: o.headers,
		client: &http.Client{
			Transport: transport.NewLoggingTransport(transport.Get(ctx, transportOpts...)),
			Timeout:   o.timeout,
		},
	}, nil
}

// HTTPSystem implements Provider.
func (s *System) HTTPSystem() *System {
	return s
}

// BaseURL returns the URL requests are resolved against.
func (s *System) BaseURL() *url.URL {
	return s.base
}

// Resolve returns the absolute URL for a request.
func (s *System) Resolve(req Request) (*url.URL, error) {
	ref, err := url.Parse(req.Path)
	if err != nil {
		return nil, err
	}

	target := ref
	if !ref.IsAbs() {
		target = s.base.JoinPath(ref.Path)
		target.RawQuery = ref.RawQuery
	}

	if len(req.Query) > 0 {
		query := target.Query()
		for k, v := range req.Query {
			query.Set(k, v)
		}

		target.RawQuery = query.Encode()
	}

	return target, nil
}

// Do sends req and records the response.
func (s *System) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := req.body()
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	for name, values := range s.headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for name, v := range req.Headers {
		httpReq.Header.Set(name, v)
	}

	start := time.Now()

	rsp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, logger.AnnotateError(err, "method", method, "url", target.String())
	}

	defer func() { _ = rsp.Body.Close() }()

	out, err := readResponse(rsp, time.Since(start))
	if err != nil {
		return nil, logger.AnnotateError(err, "method", method, "url", target.String(), "status", rsp.StatusCode)
	}

	s.mu.Lock()
	s.last = out
	s.mu.Unlock()

	return out, nil
}

// Last returns the most recent response, nil before any request.
func (s *System) Last() *Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Observe sends the state's probe request when its metadata declares one
// under "probe"; otherwise it exposes the last response.
func (s *System) Observe(ctx context.Context, _ string, metadata map[string]any) (map[string]any, error) {
	response := s.Last()

	if probe, ok := metadata[MetadataKey].(map[string]any); ok {
		req, err := ParseRequest(probe)
		if err != nil {
			return nil, err
		}

		response, err = s.Do(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	env := map[string]any{}
	if response != nil {
		env = response.Env()
	}

	env["metadata"] = metadata

	return env, nil
}

// Provider is implemented by systems that can send HTTP requests.
type Provider interface {
	HTTPSystem() *System
}

// From returns the HTTP client behind a crawl system.
func From(system statemachine.System) (*System, error) {
	provider, ok := system.(Provider)
	if !ok || provider.HTTPSystem() == nil {
		return nil, fmt.Errorf("%w: %T", ErrNotHTTPSystem, system)
	}

	return provider.HTTPSystem(), nil
}
