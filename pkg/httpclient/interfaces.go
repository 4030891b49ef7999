package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	// Status returns the numeric status with its text, e.g. "200 OK".
	Status() string
	// IsError reports the transport's own success/failure classification.
	IsError() bool
	// ResolvedPath returns the final request path with the encoded query
	// string, when the transport knows it.
	ResolvedPath() string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, method, url string, query, headers map[string]string, body []byte) (Response, error)
}
