package models

import (
	"time"
)

// Policy is one named limit: at most Limit requests per Window per key.
type Policy struct {
	Name    string
	Limit   int
	Window  time.Duration
	Code    string
	Message string
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Key scopes a client identifier to a policy.
func (p Policy) Key(identifier string) string {
	return "ratelimit:" + p.Name + ":" + identifier
}

// GlobalPolicy caps every request per client IP.
func GlobalPolicy(limit int, window time.Duration) Policy {
	return Policy{
		Name:    "global",
		Limit:   limit,
		Window:  window,
		Code:    "rate_limit_exceeded",
		Message: "too many requests, try again later",
	}
}

// AuthPolicy caps credential endpoints per client IP.
func AuthPolicy(limit int, window time.Duration) Policy {
	return Policy{
		Name:    "auth",
		Limit:   limit,
		Window:  window,
		Code:    "auth_rate_limit_exceeded",
		Message: "too many authentication attempts, try again later",
	}
}
