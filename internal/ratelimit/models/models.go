package models

import (
	"strings"
	"time"
)

// Class groups routes that share a limit.
type Class string

const (
	// ClassSubmit covers new submissions and corrections.
	ClassSubmit Class = "submit"
	// ClassDecide covers verify/reject decisions.
	ClassDecide Class = "decide"
	// ClassRead covers record lookups and listings.
	ClassRead Class = "read"
)

// Limit is a sliding window allowance.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; set when not allowed
}

// Key builds the bucket key for a class and subject (actor ID or client IP).
func Key(class Class, subject string) string {
	return "electiondesk:ratelimit:" + string(class) + ":" + SanitizeKeySegment(subject)
}

// SanitizeKeySegment escapes the key delimiter so a subject such as
// "officer:admin" cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
