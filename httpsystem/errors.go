package httpsystem

import "errors"

var (
	// ErrInvalidBaseURL is returned for a base URL that is not absolute.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrPathRequired is returned for a request declaration without a path.
	ErrPathRequired = errors.New("request path is required")

	// ErrUnexpectedResponse is returned when a response does not satisfy
	// the request's expect condition.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrNotHTTPSystem is returned when an http action runs against a
	// system that cannot send requests.
	ErrNotHTTPSystem = errors.New("system cannot send HTTP requests")
)
