// Package agromet is a credentialed client for the Agromet weather-data API.
// A Client is configured once at construction and is safe for concurrent use;
// per-call state lives in the Request value and is discarded afterwards.
package agromet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cropwatch-hq/agromet-harvester/pkg/httpclient"
)

// DefaultHost is the production API origin.
const DefaultHost = "https://ag.agrometapis.com"

const (
	clientTag           = "[agromet]"
	defaultTimeout      = 5 * time.Minute
	defaultResponseType = "json"
)

// FailurePolicy selects how a completed exchange is classified.
type FailurePolicy int

const (
	// PolicyStrict rejects every status outside [200, 300).
	PolicyStrict FailurePolicy = iota
	// PolicyTolerant follows the transport's own error classification and
	// downgrades a 404 to a nil payload instead of an error.
	PolicyTolerant
)

// Client is the facade over the remote API. Credentials, host, timeout,
// failure policy and logging are all fixed when New returns.
type Client struct {
	appID        string
	appKey       string
	host         string
	responseType string
	timeout      time.Duration
	policy       FailurePolicy
	logLevel     string
	logDetail    LogDetail
	logger       Logger
	debug        bool
	transport    httpclient.Client
}

// New builds a Client from the given options. With zero options the client
// targets the production host, uses the strict failure policy and keeps
// logging disabled.
func New(opts ...Option) *Client {
	c := &Client{
		host:         DefaultHost,
		responseType: defaultResponseType,
		timeout:      defaultTimeout,
		policy:       PolicyStrict,
		logLevel:     LevelVerbose,
		logDetail:    LogDetail{URL: true, Params: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		if c.debug {
			c.logger = newStderrLogger()
		} else {
			c.logger = nopLogger{}
		}
	}
	if c.transport == nil {
		c.transport = httpclient.NewRestyClient(c.timeout)
	}
	return c
}

// Do executes one request through the configured transport, classifies the
// outcome under the client's failure policy and emits a single log line
// reflecting the final status. On success only the response payload is
// returned, never the transport envelope.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Params == nil {
		req.Params = make(map[string]string)
	}
	injectCredentials(req.Params, c.appID, c.appKey, req.AppID, req.AppKey)

	url := joinURL(c.host, req.Path)

	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = b
	}

	resp, err := c.transport.Do(ctx, req.Method, url, req.Params, c.headers(len(body) > 0), body)
	if err != nil {
		c.logCall(LevelError, req, url, body, nil)
		return nil, fmt.Errorf("agromet request: %w", err)
	}

	payload, err := c.classify(resp)
	if err != nil {
		c.logCall(LevelError, req, url, body, resp)
		return nil, err
	}
	c.logCall(c.logLevel, req, url, body, resp)
	return payload, nil
}

// classify applies the failure policy to a completed exchange. Under the
// tolerant policy a 404 yields a nil payload with no error.
func (c *Client) classify(resp httpclient.Response) (json.RawMessage, error) {
	switch c.policy {
	case PolicyTolerant:
		if resp.IsError() {
			if resp.StatusCode() == http.StatusNotFound {
				return nil, nil
			}
			return nil, newAPIError(resp)
		}
	default:
		if code := resp.StatusCode(); code < 200 || code >= 300 {
			return nil, newAPIError(resp)
		}
	}
	return resp.Body(), nil
}

func (c *Client) headers(hasBody bool) map[string]string {
	h := map[string]string{"Accept": acceptFor(c.responseType)}
	if hasBody {
		h["Content-Type"] = "application/json"
	}
	return h
}

// acceptFor translates the configured response type into an Accept header.
// Values already shaped like a MIME type pass through untouched.
func acceptFor(responseType string) string {
	switch responseType {
	case "", "json":
		return "application/json"
	case "text":
		return "text/plain"
	case "xml":
		return "application/xml"
	default:
		if strings.Contains(responseType, "/") {
			return responseType
		}
		return "application/" + responseType
	}
}
