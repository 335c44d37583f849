package httpsystem

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const shopDeclaration = `
name: shop
initialState: Empty
reset:
  type: http
  parameters:
    method: POST
    path: /reset
states:
  - name: Empty
    verify: json.items == 0 && !json.paid
    metadata:
      probe:
        path: /status
  - name: Filled
    verify: json.items > 0 && !json.paid
    metadata:
      probe:
        path: /status
  - name: Paid
    verify: json.paid
    metadata:
      probe:
        path: /status
transitions:
  - from: Empty
    to: Filled
    action:
      type: http
      parameters:
        method: POST
        path: /cart
        body:
          sku: A1
        expect: status == 201 && json.items == 1
  - from: Filled
    to: Empty
    action:
      type: http
      parameters:
        method: DELETE
        path: /cart
  - from: Filled
    to: Paid
    action:
      type: http
      parameters:
        method: POST
        path: /checkout
        headers:
          X-Token: secret
  - from: Paid
    to: Empty
    action:
      type: http
      parameters:
        method: POST
        path: /reset
`

// shop is a tiny stateful service to crawl.
type shop struct {
	mu           sync.Mutex
	items        int
	paid         bool
	failCheckout bool
}

func (s *shop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := http.StatusOK

	switch r.Method + " " + r.URL.Path {
	case "GET /status":
	case "POST /cart":
		var item map[string]any
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item["sku"] == nil {
			status = http.StatusBadRequest
		} else {
			s.items++
			status = http.StatusCreated
		}
	case "DELETE /cart":
		s.items = 0
	case "POST /checkout":
		switch {
		case s.failCheckout:
			status = http.StatusInternalServerError
		case r.Header.Get("X-Token") != "secret" || s.items == 0:
			status = http.StatusConflict
		default:
			s.paid = true
		}
	case "POST /reset":
		s.items, s.paid = 0, false
	default:
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"items": s.items, "paid": s.paid})
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	return logger.WithLogger(t.Context(), slogt.New(t))
}

func newShopCrawler(t *testing.T, svc *shop) *statemachine.Crawler {
	t.Helper()

	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)

	system, err := New(t.Context(), server.URL)
	require.NoError(t, err)

	config, err := statemachine.LoadConfigFromBytes([]byte(shopDeclaration), statemachine.FormatYAML)
	require.NoError(t, err)

	factory := statemachine.NewActionFactory()
	Register(factory)

	crawler, err := statemachine.NewCrawlerFromConfig(config, system, factory)
	require.NoError(t, err)

	return crawler
}

func TestCrawlShop(t *testing.T) {
	t.Parallel()

	crawler := newShopCrawler(t, &shop{})

	require.NoError(t, crawler.VerifyAllStates(testContext(t), "", true))

	view := crawler.View()
	assert.ElementsMatch(t, []string{"shop.Empty", "shop.Filled", "shop.Paid"}, view.VisitedStates)
	assert.Empty(t, view.ErrorStates)
	assert.Len(t, view.VisitedTransitions, 5)
}

func TestCrawlShopCheckoutFailure(t *testing.T) {
	t.Parallel()

	crawler := newShopCrawler(t, &shop{failCheckout: true})

	err := crawler.VerifyAllStates(testContext(t), "", false)

	var transitionErr *statemachine.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, []string{"shop.Paid"}, transitionErr.Failed)

	require.NoError(t, crawler.MoveTo(testContext(t), "shop.Empty"))
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	req, err := ParseRequest(map[string]any{"path": "/items", "method": "post", "body": map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, map[string]any{"a": float64(1)}, req.Body)

	req, err = ParseRequest(map[string]any{"path": "/items"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)

	_, err = ParseRequest(map[string]any{"method": "GET"})
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	sys, err := New(t.Context(), "http://system.test/api/")
	require.NoError(t, err)

	u, err := sys.Resolve(Request{Path: "/cart?x=1", Query: map[string]string{"y": "2"}})
	require.NoError(t, err)
	assert.Equal(t, "http://system.test/api/cart?x=1&y=2", u.String())

	u, err = sys.Resolve(Request{Path: "https://other.test/ping"})
	require.NoError(t, err)
	assert.Equal(t, "https://other.test/ping", u.String())

	_, err = New(t.Context(), "not a url")
	require.ErrorIs(t, err, ErrInvalidBaseURL)
}

func TestDoWithRoundTripper(t *testing.T) {
	t.Parallel()

	var seen *http.Request

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r

		return httptest.NewRecorder().Result(), nil
	})

	sys, err := New(t.Context(), "http://system.test", WithRoundTripper(rt), WithHeader("X-Suite", "crawl"))
	require.NoError(t, err)

	rsp, err := sys.Do(testContext(t), Request{Method: http.MethodPut, Path: "/doc", Body: "plain"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rsp.Status)
	assert.Same(t, rsp, sys.Last())

	require.NotNil(t, seen)
	assert.Equal(t, http.MethodPut, seen.Method)
	assert.Equal(t, "crawl", seen.Header.Get("X-Suite"))
	assert.Equal(t, "text/plain; charset=utf-8", seen.Header.Get("Content-Type"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestObserveWithoutProbe(t *testing.T) {
	t.Parallel()

	sys, err := New(t.Context(), "http://system.test")
	require.NoError(t, err)

	env, err := sys.Observe(t.Context(), "s", map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"metadata": map[string]any{"k": 1}}, env)

	_, err = From(42)
	require.ErrorIs(t, err, ErrNotHTTPSystem)
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	latin1, err := charmap.ISO8859_1.NewEncoder().String("café crème")
	require.NoError(t, err)

	assert.Equal(t, "café crème", decodeBody([]byte(latin1), "text/plain; charset=ISO-8859-1"))
	assert.Equal(t, "café", decodeBody([]byte("café"), "text/plain"))
	assert.Empty(t, decodeBody(nil, "text/plain"))

	rsp := &Response{Status: 200, Headers: http.Header{"Content-Type": {"application/json"}}, Body: "{}"}
	env := rsp.Env()
	assert.Equal(t, "application/json", env["headers"].(map[string]any)["content-type"]) //nolint:forcetypeassert
	assert.True(t, isJSON("application/problem+json", ""))
	assert.True(t, isJSON("", " [1]"))
	assert.False(t, isJSON("text/html", "<html>"))
}
