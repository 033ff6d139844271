package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Kind is the closed failure taxonomy for address searches.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindRateLimited       Kind = "rateLimited"
	KindInvalidCredential Kind = "invalidCredential"
	KindNoResults         Kind = "noResults"
	KindCancelled         Kind = "cancelled"
	KindTimeout           Kind = "timeout"
	KindUnknown           Kind = "unknown"
)

// SearchError is a classified search failure. Created fresh per failure and
// never persisted.
type SearchError struct {
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	UserAction string    `json:"userAction,omitempty"`
	Retryable  bool      `json:"retryable"`
	OccurredAt time.Time `json:"occurredAt"`
	Cause      error     `json:"-"`
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SearchError) Unwrap() error { return e.Cause }

// HTTPError carries a non-2xx proxy response, body text included for
// diagnostics.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Classify maps an arbitrary failure into the taxonomy. Classification order
// matters: cancellation first, then connectivity, credentials, rate limits,
// timeouts, not-found, server-side, and finally unknown.
func Classify(err error) *SearchError {
	se := &SearchError{
		Kind:       KindUnknown,
		Message:    "Search failed for an unknown reason.",
		Retryable:  true,
		OccurredAt: time.Now(),
		Cause:      err,
	}
	if err == nil {
		return se
	}

	// Already classified; keep the original verdict.
	var prev *SearchError
	if errors.As(err, &prev) {
		return prev
	}

	msg := strings.ToLower(err.Error())

	var httpErr *HTTPError
	status := 0
	if errors.As(err, &httpErr) {
		status = httpErr.Status
	}

	switch {
	case errors.Is(err, context.Canceled) || strings.Contains(msg, "cancel"):
		se.Kind = KindCancelled
		se.Message = "Search was cancelled."
		se.Retryable = false

	case isNetworkFailure(err, msg):
		se.Kind = KindNetwork
		se.Message = "Could not reach the address service."
		se.UserAction = "Check your connection and try again."
		se.Retryable = true

	case status == 401 || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "credential") || strings.Contains(msg, "api key"):
		se.Kind = KindInvalidCredential
		se.Message = "The address service rejected our credentials."
		se.UserAction = "Contact support; this is not something you can fix."
		se.Retryable = false

	case status == 429 || strings.Contains(msg, "limit") || strings.Contains(msg, "quota"):
		se.Kind = KindRateLimited
		se.Message = "Too many searches right now."
		se.UserAction = "Wait a moment before searching again."
		se.Retryable = true

	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out"):
		se.Kind = KindTimeout
		se.Message = "The address service took too long to respond."
		se.UserAction = "Try again."
		se.Retryable = true

	case status == 404 || strings.Contains(msg, "not found"):
		se.Kind = KindNoResults
		se.Message = "No matching addresses were found."
		se.UserAction = "Try a different or broader query."
		se.Retryable = false

	case status >= 500:
		// Server-side failures are treated as transient connectivity issues.
		se.Kind = KindNetwork
		se.Message = "The address service is having trouble."
		se.UserAction = "Try again shortly."
		se.Retryable = true

	default:
		se.UserAction = "Try again; contact support if this keeps happening."
	}

	return se
}

func isNetworkFailure(err error, msg string) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "connection reset")
}
