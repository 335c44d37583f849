package httpsystem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request declares one HTTP call. A string body is sent verbatim; any other
// body is encoded as JSON. Expect is a boolean expression over the
// response, "status >= 200 && status < 400" when empty.
type Request struct {
	Method  string            `json:"method,omitempty"`
	Path    string            `json:"path"`
	Query   map[string]string `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
	Expect  string            `json:"expect,omitempty"`
}

// ParseRequest reads a Request from declaration parameters.
func ParseRequest(params map[string]any) (Request, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("invalid http parameters: %w", err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("invalid http parameters: %w", err)
	}

	if strings.TrimSpace(req.Path) == "" {
		return Request{}, ErrPathRequired
	}

	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	return req, nil
}

// body returns the encoded body and the content type it implies.
func (r Request) body() (io.Reader, string, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return bytes.NewReader(data), "application/json", nil
	}
}
