package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotImplemented is returned by a custom transport built without a function.
var ErrNotImplemented = errors.New("not implemented")

// NewCustom returns a round tripper that calls roundTrip for every request.
// A nil roundTrip fails every request with ErrNotImplemented, which makes
// unintended HTTP calls visible in tests.
func NewCustom(roundTrip func(req *http.Request) (*http.Response, error)) http.RoundTripper {
	if roundTrip == nil {
		roundTrip = func(*http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("%w: RoundTrip", ErrNotImplemented)
		}
	}

	return &customTransport{roundTrip: roundTrip}
}

type customTransport struct {
	roundTrip func(req *http.Request) (*http.Response, error)
}

func (c *customTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	return c.roundTrip(request)
}
