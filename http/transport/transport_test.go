package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amp-labs/statecrawler/envutil"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testData = "This is test data that will be compressed using various algorithms " +
	"to verify decompression works correctly."

func TestNewHonoursEnvironment(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverrides(t.Context(), map[string]string{
		"HTTP_TRANSPORT_MAX_IDLE_CONNS":    "7",
		"HTTP_TRANSPORT_IDLE_CONN_TIMEOUT": "3s",
		"HTTP_TRANSPORT_PREFER_POOLED":     "false",
	})

	tr, ok := New(ctx).(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 7, tr.MaxIdleConns)
	assert.Equal(t, 3*time.Second, tr.IdleConnTimeout)
	assert.True(t, tr.DisableKeepAlives)

	insecure, ok := New(t.Context(), InsecureTLS, EnableDNSCache).(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, insecure.TLSClientConfig)
	assert.True(t, insecure.TLSClientConfig.InsecureSkipVerify)

	_, ok = New(t.Context(), Decompress).(*decompressor)
	assert.True(t, ok)
}

func TestGetSharesInstances(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "HTTP_TRANSPORT_PREFER_POOLED", "true")

	assert.Same(t, Get(ctx, EnableDNSCache), Get(ctx, EnableDNSCache))
	assert.NotSame(t, Get(ctx, EnableDNSCache), Get(ctx, DisableConnectionPooling))

	custom := NewCustom(nil)
	assert.Same(t, custom, Get(ctx, WithTransportOverride(custom)))

	other := NewCustom(nil)
	assert.Same(t, other, Get(WithTransport(ctx, other), EnableDNSCache))
}

func TestNewCustom(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "http://system.test/", nil)

	_, err := NewCustom(nil).RoundTrip(req)
	require.ErrorIs(t, err, ErrNotImplemented)

	tr := NewCustom(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody}, nil
	})

	rsp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, rsp.StatusCode)
}

func TestDecompressorAlgorithms(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		contentEncoding string
		compress        func(io.Writer) (io.WriteCloser, error)
	}{
		{"gzip", func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }},
		{"deflate", func(w io.Writer) (io.WriteCloser, error) { return flate.NewWriter(w, flate.DefaultCompression) }},
		{"br", func(w io.Writer) (io.WriteCloser, error) { return brotli.NewWriter(w), nil }},
		{"zstd", func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) }},
		{"snappy", func(w io.Writer) (io.WriteCloser, error) { return snappy.NewBufferedWriter(w), nil }},
		{"lz4", func(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil }},
		{"", nil},
	}

	for _, tc := range testCases {
		t.Run("encoding "+tc.contentEncoding, func(t *testing.T) {
			t.Parallel()

			payload := []byte(testData)

			if tc.compress != nil {
				var buf bytes.Buffer

				w, err := tc.compress(&buf)
				require.NoError(t, err)

				_, err = w.Write(payload)
				require.NoError(t, err)
				require.NoError(t, w.Close())

				payload = buf.Bytes()
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.contentEncoding != "" {
					w.Header().Set("Content-Encoding", tc.contentEncoding)
				}

				_, _ = w.Write(payload)
			}))
			t.Cleanup(server.Close)

			client := &http.Client{Transport: New(t.Context(), Decompress, DisableConnectionPooling)}

			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
			require.NoError(t, err)

			resp, err := client.Do(req)
			require.NoError(t, err)
			t.Cleanup(func() { _ = resp.Body.Close() })

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, testData, string(body))
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
		})
	}
}

func TestNewDecompressorPanicsOnNil(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewDecompressor(nil) })
}

func TestLoggingTransport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.WithLogger(t.Context(), slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	tr := NewLoggingTransport(NewCustom(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Set-Cookie": {"session=secret-cookie"}},
			Body:       http.NoBody,
		}, nil
	}))

	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "http://system.test/cart", nil)
	req.Header.Set("Authorization", "Bearer secret")

	rsp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, buf.String(), "secret")

	var request, response map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &request))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &response))

	assert.Equal(t, "HTTP request", request["msg"])
	assert.Equal(t, "HTTP response", response["msg"])
	assert.Equal(t, request["correlation_id"], response["correlation_id"])
	assert.InDelta(t, 200.0, response["status"], 0)
}
