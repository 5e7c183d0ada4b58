package upcdatabase

import (
	"time"

	"go.uber.org/zap"

	"github.com/upc-tools/upcdatabase-go/pkg/httpclient"
)

// AuthPlacement selects where the API key travels on each request.
type AuthPlacement string

const (
	// AuthBearerHeader sends the key as "Authorization: Bearer <key>".
	AuthBearerHeader AuthPlacement = "bearer"
	// AuthQueryParam appends the key as a "key" query parameter.
	AuthQueryParam AuthPlacement = "query"
)

// Option customizes a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout overrides the default 10s request timeout. Ignored when a
// custom transport is injected via WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAuthPlacement selects the authentication convention. Exactly one
// convention is active per client; the default is AuthBearerHeader.
func WithAuthPlacement(p AuthPlacement) Option {
	return func(c *Client) { c.auth = p }
}

// WithHTTPClient injects a custom transport, typically a mock in tests.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a logger for request-level debug logging.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}
