package transport

import (
	"errors"
	"io"
	"net/http"

	"github.com/fereidani/httpdecompressor"
)

// NewDecompressor wraps roundTripper so response bodies are decoded
// according to their Content-Encoding. Closing the body closes the decoder
// and then the original body. Panics if roundTripper is nil.
func NewDecompressor(roundTripper http.RoundTripper) http.RoundTripper {
	if roundTripper == nil {
		panic("NewDecompressor: roundTripper is nil")
	}

	return &decompressor{roundTripper: roundTripper}
}

type decompressor struct {
	roundTripper http.RoundTripper
}

var _ http.RoundTripper = (*decompressor)(nil)

func (d *decompressor) RoundTrip(request *http.Request) (*http.Response, error) {
	rsp, err := d.roundTripper.RoundTrip(request)
	if err != nil {
		return rsp, err
	}

	origBody := rsp.Body

	bodyReader, err := httpdecompressor.Reader(rsp)
	if err != nil {
		_ = origBody.Close()

		return nil, err
	}

	if bodyReader == origBody {
		return rsp, nil
	}

	rsp.Body = &decodedBody{Reader: bodyReader, closers: []io.Closer{bodyReader, origBody}}
	rsp.Header.Del("Content-Encoding")
	rsp.Header.Del("Content-Length")
	rsp.ContentLength = -1
	rsp.Uncompressed = true

	return rsp, nil
}

// decodedBody reads from the decoder and closes every closer in order.
type decodedBody struct {
	io.Reader

	closers []io.Closer
}

func (b *decodedBody) Close() error {
	errs := make([]error, 0, len(b.closers))
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}
