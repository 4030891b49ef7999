package agromet

import "strings"

// Reserved query keys the client always controls. Caller-supplied values
// under these keys are overwritten during credential injection.
const (
	appIDParam  = "app_id"
	appKeyParam = "app_key"
)

// Request describes one outbound API call.
type Request struct {
	Method string
	Path   string
	Params map[string]string

	// AppID and AppKey are per-call credential fallbacks, consulted only
	// when the client configuration carries no value of its own.
	AppID  string
	AppKey string

	// Body is serialized as a JSON payload when non-nil. The documented
	// Agromet operations are all GET and leave it unset.
	Body any
}

// joinURL builds the absolute request URL from the configured host and an
// endpoint path. Trailing-slash handling happens here, not at configuration
// time, so the stored host stays exactly as given.
func joinURL(host, path string) string {
	host = strings.TrimSuffix(host, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return host + path
}

// resolveCredential applies the credential precedence rule: the client
// value wins when non-empty, then the per-call fallback, else absent.
func resolveCredential(client, fallback string) string {
	if client != "" {
		return client
	}
	return fallback
}

// injectCredentials force-sets the reserved credential keys on params,
// last, so callers cannot smuggle their own values through. A credential
// that resolves to empty removes its key entirely.
func injectCredentials(params map[string]string, clientID, clientKey, reqID, reqKey string) {
	setOrDelete(params, appIDParam, resolveCredential(clientID, reqID))
	setOrDelete(params, appKeyParam, resolveCredential(clientKey, reqKey))
}

func setOrDelete(params map[string]string, key, value string) {
	if value == "" {
		delete(params, key)
		return
	}
	params[key] = value
}
