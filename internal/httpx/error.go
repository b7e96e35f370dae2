package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPError represents a non-2xx response from the store. The store reports
// failures as {"errors": ["...", ...]}; when the body parses as that shape
// the messages are captured in Messages.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Messages   []string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Messages) > 0 {
		return fmt.Sprintf("httpx: status=%d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("httpx: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Retryable reports whether the failure should be considered transient.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}

// newHTTPError consumes the response body and wraps it as an *HTTPError.
func newHTTPError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read error body: %w", err)
	}
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
	var payload struct {
		Errors []string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		httpErr.Messages = payload.Errors
	}
	return httpErr
}
