package models

import (
	"strconv"
	"time"
)

// Rule is a rate-limit policy: at most Max requests per key within Window.
type Rule struct {
	Window time.Duration
	Max    int
}

// IsZero reports whether the rule is unset (route has no limit of its own).
func (r Rule) IsZero() bool {
	return r.Window <= 0 || r.Max <= 0
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	// Degraded is set when the answer came from the fallback store, or when the
	// request was let through because no store could answer.
	Degraded bool `json:"degraded,omitempty"`
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, with a
// minimum of one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// FailOpen is the result used when no store could answer.
func FailOpen(rule Rule, now time.Time) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Limit:     rule.Max,
		Remaining: rule.Max,
		ResetAt:   now.Add(rule.Window),
		Degraded:  true,
	}
}

// String renders the rule as "<max>/<window>" for logs and metric labels.
func (r Rule) String() string {
	return strconv.Itoa(r.Max) + "/" + r.Window.String()
}
