package agromet

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/cropwatch-hq/agromet-harvester/pkg/httpclient"
)

// Levels used by the client for its own emissions. Successful calls log at
// the configured level, failed calls always at LevelError. Custom sinks may
// interpret level strings however they like.
const (
	LevelVerbose = "verbose"
	LevelError   = "error"
)

// Logger is the sink for per-call log lines. Implementations must be safe
// for concurrent use; the client emits exactly one line per call.
type Logger interface {
	Log(level, message string)
}

// nopLogger is installed when no sink is configured and debug is off.
type nopLogger struct{}

func (nopLogger) Log(string, string) {}

// stderrLogger is the debug-mode fallback sink.
type stderrLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func newStderrLogger() *stderrLogger {
	return &stderrLogger{out: os.Stderr}
}

func (l *stderrLogger) Log(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", level, message)
}

// LogDetail selects which request and response fields appear in call lines.
type LogDetail struct {
	// URL includes the absolute request URL.
	URL bool
	// Params includes the resolved request path with its encoded query
	// string, falling back to the raw path when no response exists.
	Params bool
	// Data includes the serialized request body, when one was sent.
	Data bool
	// Response includes the response body.
	Response bool
}

func (c *Client) logCall(level string, req Request, url string, body []byte, resp httpclient.Response) {
	c.logger.Log(level, c.callLine(req, url, body, resp))
}

// callLine renders the single line describing a completed or failed call.
// Absent fields are dropped rather than rendered blank, and the surviving
// segments are joined by single spaces. The status segment is present
// whenever a response exists, regardless of detail flags.
func (c *Client) callLine(req Request, url string, body []byte, resp httpclient.Response) string {
	parts := make([]string, 0, 6)
	parts = append(parts, clientTag, req.Method)
	if c.logDetail.URL {
		parts = append(parts, url)
	}
	if c.logDetail.Params {
		parts = append(parts, resolvedOrRawPath(req, resp))
	}
	if c.logDetail.Data {
		parts = append(parts, string(body))
	}
	parts = append(parts, statusLabel(resp))
	if c.logDetail.Response && resp != nil {
		parts = append(parts, string(resp.Body()))
	}
	return compactJoin(parts)
}

func resolvedOrRawPath(req Request, resp httpclient.Response) string {
	if resp != nil {
		if p := resp.ResolvedPath(); p != "" {
			return p
		}
	}
	return req.Path
}

// statusLabel is empty when the call never produced a response, e.g. on a
// connection failure.
func statusLabel(resp httpclient.Response) string {
	if resp == nil {
		return ""
	}
	if s := resp.Status(); s != "" {
		return s
	}
	code := resp.StatusCode()
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

func compactJoin(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
