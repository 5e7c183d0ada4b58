// Package upcdatabase is a client for the UPC Database API
// (https://api.upcdatabase.org): product lookups, search, currency and
// Bitcoin rates, QR generation, and account info.
package upcdatabase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upc-tools/upcdatabase-go/pkg/httpclient"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.upcdatabase.org"

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "upcdatabase-go/0.1.0"
)

// Client issues API calls against the UPC Database service. A Client is
// built once with New, reused across calls, and released with Close. It adds
// no locking of its own; concurrent use is as safe as the underlying
// transport permits.
type Client struct {
	apiKey  string
	baseURL string
	auth    AuthPlacement
	timeout time.Duration
	http    httpclient.Client
	log     *zap.SugaredLogger

	closeOnce sync.Once
	closeErr  error
}

// New creates a Client for the given API key. The key must be non-empty;
// everything else is optional.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &ConfigError{Reason: "api_key cannot be empty"}
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		auth:    AuthBearerHeader,
		timeout: defaultTimeout,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		rc := httpclient.NewRestyClient(c.timeout)
		rc.SetHeader("User-Agent", userAgent)
		c.http = rc
	}

	return c, nil
}

// Lookup fetches a product by its UPC/EAN code.
func (c *Client) Lookup(ctx context.Context, code string) (map[string]any, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("code cannot be empty")
	}
	return c.getJSON(ctx, "/product/"+url.PathEscape(code), nil)
}

// Search queries the product database. A limit of zero or less means the
// upstream default of 10 results.
func (c *Client) Search(ctx context.Context, query string, limit int) (map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	return c.getJSON(ctx, "/search", map[string]string{
		"s":     query,
		"limit": strconv.Itoa(limit),
	})
}

// LatestCurrency fetches the latest currency exchange rates.
func (c *Client) LatestCurrency(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/currency/latest", nil)
}

// CurrencyHistory fetches exchange rates for a date in YYYY-MM-DD form. The
// date is not validated client-side; malformed dates surface as upstream
// errors.
func (c *Client) CurrencyHistory(ctx context.Context, date string) (map[string]any, error) {
	return c.getJSON(ctx, "/currency/history", map[string]string{"date": date})
}

// CurrencySymbols fetches the supported currency codes and names.
func (c *Client) CurrencySymbols(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/currency/symbols", nil)
}

// LatestBitcoin fetches the latest Bitcoin exchange rate.
func (c *Client) LatestBitcoin(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/bitcoin/latest", nil)
}

// BitcoinHistory fetches the Bitcoin rate for a date in YYYY-MM-DD form.
func (c *Client) BitcoinHistory(ctx context.Context, date string) (map[string]any, error) {
	return c.getJSON(ctx, "/bitcoin/history", map[string]string{"date": date})
}

// GenerateQR asks the service to render text as a QR code and returns the
// response body verbatim. The endpoint is documented to return PNG bytes,
// though some deployments respond with JSON; the body is passed through
// either way so callers can inspect what they actually received.
func (c *Client) GenerateQR(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	return c.get(ctx, "/qr/"+encoded, nil)
}

// AccountInfo fetches usage and subscription details for the account owning
// the API key.
func (c *Client) AccountInfo(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/account", nil)
}

// Close releases the underlying transport. It is safe to call more than
// once; the release happens exactly once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.http.Close()
	})
	return c.closeErr
}

// getJSON performs a GET and decodes the JSON body without interpreting it.
func (c *Client) getJSON(ctx context.Context, path string, query map[string]string) (map[string]any, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, newTransportError(fmt.Errorf("decode response: %w", err))
	}
	return decoded, nil
}

// get performs a single authenticated GET. One outbound request per call, no
// retries.
func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	fullURL := c.baseURL + path

	var headers map[string]string
	switch c.auth {
	case AuthQueryParam:
		if query == nil {
			query = make(map[string]string, 1)
		}
		query["key"] = c.apiKey
	default:
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
	}

	c.log.Debugw("upcdatabase request", "path", path)

	resp, err := c.http.Get(ctx, fullURL, headers, query)
	if err != nil {
		c.log.Warnw("upcdatabase request failed", "path", path, "error", err)
		return nil, newTransportError(err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		c.log.Warnw("upcdatabase error response", "path", path, "status", status)
		return nil, newHTTPError(status, resp.Body())
	}

	return resp.Body(), nil
}
