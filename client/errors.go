package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a call exceeds its deadline.
var ErrTimeout = errors.New("request timed out")

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// RateLimitError is returned when the remote API rate limits requests.
type RateLimitError struct {
	URL   string
	Reset time.Time // zero when the response carried no reset signal
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("rate limited: %s", e.URL)
	}
	return fmt.Sprintf("rate limited until %s: %s", e.Reset.UTC().Format(time.RFC3339), e.URL)
}
