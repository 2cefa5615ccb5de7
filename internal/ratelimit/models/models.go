package models

import (
	"strconv"
	"time"
)

// Class groups endpoints that share a limit.
type Class string

const (
	// ClassRead covers public queries, keyed by client IP.
	ClassRead Class = "read"
	// ClassWrite covers authenticated mutations, keyed by caller.
	ClassWrite Class = "write"
	// ClassFaucet covers token minting, keyed by caller.
	ClassFaucet Class = "faucet"
)

// Policy is a sliding window limit.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// Key builds the bucket key for a subject within a class.
func Key(class Class, kind, subject string) string {
	return "rl:" + string(class) + ":" + kind + ":" + subject
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, never below one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return max(secs, 1)
}

type ExceededResponse struct {
	Error      string `json:"error"`
	Class      Class  `json:"class"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

func (r Result) Headers() map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
}
