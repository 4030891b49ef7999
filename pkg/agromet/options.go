package agromet

import (
	"time"

	"github.com/cropwatch-hq/agromet-harvester/pkg/httpclient"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithAppID sets the application identifier injected into every request.
func WithAppID(id string) Option {
	return func(c *Client) { c.appID = id }
}

// WithAppKey sets the application key injected into every request.
func WithAppKey(key string) Option {
	return func(c *Client) { c.appKey = key }
}

// WithHost overrides the production API origin. A trailing slash is
// tolerated and resolved per request.
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
	}
}

// WithTimeout bounds each call end to end. Zero or negative keeps the
// default of five minutes.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithResponseType sets the expected response content type, "json" by
// default. The value is translated into the Accept header.
func WithResponseType(responseType string) Option {
	return func(c *Client) {
		if responseType != "" {
			c.responseType = responseType
		}
	}
}

// WithLogger installs the sink receiving one line per call. Without a sink
// (and with debug off) logging is disabled entirely.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLogLevel sets the level successful calls are emitted at, "verbose" by
// default. Failed calls always use the error level.
func WithLogLevel(level string) Option {
	return func(c *Client) {
		if level != "" {
			c.logLevel = level
		}
	}
}

// WithLogDetail selects the fields included in call lines. The default
// includes the URL and the resolved path, but neither body.
func WithLogDetail(d LogDetail) Option {
	return func(c *Client) { c.logDetail = d }
}

// WithDebug routes call lines to stderr when no sink is configured.
func WithDebug(enabled bool) Option {
	return func(c *Client) { c.debug = enabled }
}

// WithFailurePolicy selects how completed exchanges are classified.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithHTTPClient injects the transport. The default is a resty-backed
// client honoring the configured timeout.
func WithHTTPClient(t httpclient.Client) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}
