package upcdatabase

import (
	"fmt"
	"strings"
)

const bodySnippetBytes = 512

// ConfigError reports invalid client construction input.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("upcdatabase config: %s", e.Reason)
}

// RequestError reports a failed API call. For HTTP errors StatusCode holds
// the non-2xx status and Body the response body text; for transport failures
// StatusCode is zero and Err holds the underlying error.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error { return e.Err }

// newHTTPError builds a RequestError from a non-2xx response.
func newHTTPError(status int, body []byte) *RequestError {
	return &RequestError{StatusCode: status, Body: bodySnippet(body)}
}

// newTransportError builds a RequestError from a transport-level failure.
func newTransportError(err error) *RequestError {
	return &RequestError{Err: err}
}

// bodySnippet caps error bodies so upstream HTML error pages stay readable in logs.
func bodySnippet(body []byte) string {
	if len(body) > bodySnippetBytes {
		body = body[:bodySnippetBytes]
	}
	return strings.TrimSpace(string(body))
}
