package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amp-labs/statecrawler/logger"
	"github.com/google/uuid"
)

// sensitiveHeaders are logged as a redacted marker.
var sensitiveHeaders = map[string]bool{ //nolint:gochecknoglobals
	"Authorization":       true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"Proxy-Authorization": true,
	"X-Api-Key":           true,
}

// NewLoggingTransport wraps transport (http.DefaultTransport if nil) so each
// request and its response or error are logged at debug level through the
// logger carried by the request context. Every pair shares a correlation id.
func NewLoggingTransport(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &loggingTransport{transport: transport}
}

type loggingTransport struct {
	transport http.RoundTripper
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (l *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating UUID: %w", err)
	}

	ctx := request.Context()
	log := logger.Get(ctx).With("correlation_id", id.String())

	log.DebugContext(ctx, "HTTP request",
		"method", request.Method,
		"url", request.URL.String(),
		"headers", RedactHeaders(request.Header),
	)

	start := time.Now()

	response, err := l.transport.RoundTrip(request)
	if err != nil {
		log.ErrorContext(ctx, "HTTP request failed",
			"method", request.Method,
			"url", request.URL.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)

		return response, err
	}

	log.DebugContext(ctx, "HTTP response",
		"method", request.Method,
		"url", request.URL.String(),
		"status", response.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"headers", RedactHeaders(response.Header),
	)

	return response, nil
}

// RedactHeaders flattens headers for logging, masking credentials.
func RedactHeaders(headers http.Header) slog.Value {
	attrs := make([]slog.Attr, 0, len(headers))

	for key, values := range headers {
		value := strings.Join(values, ", ")
		if sensitiveHeaders[http.CanonicalHeaderKey(key)] {
			value = "<redacted>"
		}

		attrs = append(attrs, slog.String(key, value))
	}

	return slog.GroupValue(attrs...)
}
