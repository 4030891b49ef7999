package agromet

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cropwatch-hq/agromet-harvester/pkg/httpclient"
)

// APIError is a completed exchange the failure policy rejected. It carries
// the upstream status and diagnostic body so callers can branch on failure
// class without reaching into transport internals.
type APIError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func newAPIError(resp httpclient.Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       append([]byte(nil), resp.Body()...),
	}
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = strconv.Itoa(e.StatusCode)
	}
	snippet := bodySnippet(e.Body)
	if snippet == "" {
		return fmt.Sprintf("agromet: upstream status %s", status)
	}
	return fmt.Sprintf("agromet: upstream status %s: %s", status, snippet)
}

// IsNotFound reports whether err wraps an APIError for a 404 response.
// Under the tolerant policy a 404 never surfaces as an error, so this is
// only meaningful with the strict policy.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// bodySnippet trims a response body for inclusion in an error message.
func bodySnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
