package strata

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ValidationError reports input the pipeline refuses to process
// (empty, whitespace-only, oversized, or structurally invalid).
// Never retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RateLimitError reports a provider 429. RetryAfter is the server's hint,
// zero when the header was absent or unparseable.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (retry after %s)", e.Provider, e.RetryAfter)
}

// TimeoutError reports a provider or store call that exceeded its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("%s: timeout: %v", e.Op, e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// ParseKind distinguishes the three failure modes of structured completion
// output. They are never coerced into one another or into a fallback result.
type ParseKind string

const (
	ParseEmpty   ParseKind = "empty"   // response body carried no content
	ParseRefusal ParseKind = "refusal" // model declined to answer
	ParseSchema  ParseKind = "schema"  // content is not valid against the schema
)

// ParseError reports malformed or refused structured completion output.
// Raw carries the provider's response verbatim for diagnosis. Not retryable:
// the same request would most likely fail the same way.
type ParseError struct {
	Kind   ParseKind
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("completion output (%s): %s", e.Kind, e.Reason)
}

// APIError reports a non-429 HTTP failure from a provider. Server-side
// (5xx) failures are retryable; client-side (4xx) failures are not.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Body)
}

// Retryable reports whether err is worth retrying: rate limits, timeouts,
// and server-side API failures. Validation and parse errors never are.
func Retryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var to *TimeoutError
	if errors.As(err, &to) {
		return true
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Status >= 500
	}
	return false
}

// RetryAfterOf extracts the server's Retry-After hint from err, or 0.
func RetryAfterOf(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// ParseRetryAfter parses an HTTP Retry-After header value: either delay
// seconds or an HTTP date. Returns 0 when absent or unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
