package classify

import "time"

// Policy decides whether and when a classified failure is retried.
type Policy struct {
	MaxAttempts         int           // total attempts, retries included
	RateLimitedAttempts int           // total attempts for rateLimited failures
	RateLimitedDelay    time.Duration // flat delay after a rate-limit hit
	BaseDelay           time.Duration
	MaxDelay            time.Duration
}

// DefaultPolicy matches the documented retry contract: 3 attempts for
// transient kinds, 2 for rateLimited, none for terminal kinds.
var DefaultPolicy = Policy{
	MaxAttempts:         3,
	RateLimitedAttempts: 2,
	RateLimitedDelay:    60 * time.Second,
	BaseDelay:           1 * time.Second,
	MaxDelay:            30 * time.Second,
}

// ShouldRetry reports whether another attempt is allowed after attempt
// completed attempts (attempt is 1-based: 1 means the first try just failed).
func (p Policy) ShouldRetry(err *SearchError, attempt int) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case KindInvalidCredential, KindCancelled, KindNoResults:
		return false
	case KindRateLimited:
		return attempt < p.RateLimitedAttempts
	default:
		return attempt < p.MaxAttempts
	}
}

// Delay returns how long to wait before retry number attempt (0-based: the
// delay after the first failure is Delay(0, kind)).
func (p Policy) Delay(attempt int, kind Kind) time.Duration {
	switch kind {
	case KindRateLimited:
		return p.RateLimitedDelay
	case KindNetwork, KindTimeout:
		d := p.BaseDelay << uint(attempt)
		if d > p.MaxDelay || d <= 0 {
			d = p.MaxDelay
		}
		return d
	default:
		return p.BaseDelay * time.Duration(attempt+1)
	}
}
