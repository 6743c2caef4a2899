package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	HTTPTimeout = 10 * time.Second
	// maxBody caps how much of a response is kept for diagnostics.
	maxBody = 64 << 10
)

// APIError carries the HTTP status code from a health endpoint response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// NewHTTPClient returns a client with the default request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: HTTPTimeout}
}

// Fetch issues a GET and returns the status code and (truncated) body.
// Transport failures return an error and a zero status.
func Fetch(ctx context.Context, hc *http.Client, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request GET %s: %w", url, err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return resp.StatusCode, body, nil
}

// CheckReachable treats any response below 500 as reachable: WebDAV roots
// answer 401/405 to a plain GET and are still alive.
func CheckReachable(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	code, body, err := Fetch(ctx, hc, url)
	if err != nil {
		return nil, err
	}
	if code >= http.StatusInternalServerError {
		return body, &APIError{Code: code, Message: fmt.Sprintf("GET %s returned %d: %s", url, code, body)}
	}
	return body, nil
}

// IsServerError reports whether err is an APIError with a 5xx status.
func IsServerError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code >= http.StatusInternalServerError
}
