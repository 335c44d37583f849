package httpsystem

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// Response is a decoded HTTP response.
type Response struct {
	Status   int
	Headers  http.Header
	Body     string
	JSON     any
	Duration time.Duration
}

// Env exposes the response to expressions as status, headers (lower-cased
// names, first value), body and json.
func (r *Response) Env() map[string]any {
	headers := make(map[string]any, len(r.Headers))
	for name := range r.Headers {
		headers[strings.ToLower(name)] = r.Headers.Get(name)
	}

	return map[string]any{
		"status":  r.Status,
		"headers": headers,
		"body":    r.Body,
		"json":    r.JSON,
	}
}

func readResponse(rsp *http.Response, duration time.Duration) (*Response, error) {
	raw, err := io.ReadAll(io.LimitReader(rsp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	contentType := rsp.Header.Get("Content-Type")
	body := decodeBody(raw, contentType)

	out := &Response{
		Status:   rsp.StatusCode,
		Headers:  rsp.Header,
		Body:     body,
		Duration: duration,
	}

	if isJSON(contentType, body) {
		var doc any
		if json.Unmarshal([]byte(body), &doc) == nil {
			out.JSON = doc
		}
	}

	return out, nil
}

func isJSON(contentType, body string) bool {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return true
	}

	trimmed := strings.TrimSpace(body)

	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// decodeBody converts raw to NFC-normalized UTF-8. The declared charset is
// tried first, then a detected one; undecodable bytes become U+FFFD.
func decodeBody(raw []byte, contentType string) string {
	if len(raw) == 0 {
		return ""
	}

	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = strings.ToLower(params["charset"])
	}

	if (label == "" || label == "utf-8") && utf8.Valid(raw) {
		return norm.NFC.String(string(raw))
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		best, detectErr := chardet.NewTextDetector().DetectBest(raw)
		if detectErr == nil {
			reader, err = charset.NewReaderLabel(best.Charset, bytes.NewReader(raw))
		}
	}

	if err != nil {
		return norm.NFC.String(strings.ToValidUTF8(string(raw), "�"))
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return norm.NFC.String(strings.ToValidUTF8(string(raw), "�"))
	}

	return norm.NFC.String(strings.ToValidUTF8(string(decoded), "�"))
}
