package client

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// IsRateLimited reports whether a response signals "too many requests":
// a 429, or a 403 with no remaining quota.
func IsRateLimited(status int, h http.Header) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return strings.TrimSpace(h.Get(HeaderRateLimitRemaining)) == "0"
	}
	return false
}

// ResetTime extracts the moment the rate limit lifts. X-RateLimit-Reset
// (unix seconds) wins over Retry-After (seconds or HTTP date).
func ResetTime(h http.Header, now time.Time) (time.Time, bool) {
	if v := strings.TrimSpace(h.Get(HeaderRateLimitReset)); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0), true
		}
	}
	if v := strings.TrimSpace(h.Get(HeaderRetryAfter)); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs >= 0 {
			return now.Add(time.Duration(secs) * time.Second), true
		}
		if t, err := http.ParseTime(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RateLimitWait returns how long to wait before re-issuing a rate-limited
// call: max(0, reset-now)+margin when a reset signal is present, fallback otherwise.
func RateLimitWait(h http.Header, now time.Time, fallback, margin time.Duration) time.Duration {
	reset, ok := ResetTime(h, now)
	if !ok {
		return fallback
	}
	return max(reset.Sub(now), 0) + margin
}
