package model

import "time"

// Record is a persisted unit of backlog work. A record is created NEW by a
// producer, claimed for processing, and either succeeds (terminal) or returns
// to the ERROR pool until a later attempt succeeds or the record ages out of
// every selection window.
type Record struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	Status  Status         `json:"status"`

	// DateInserted never changes after creation.
	DateInserted time.Time `json:"date_inserted"`

	// FailureCount and LastFailureAt carry Fibonacci backoff state.
	// FailureCount > 0 if and only if LastFailureAt is set. The progressive
	// strategy leaves both untouched.
	FailureCount  int        `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`

	// ClaimedAt anchors the lease while the record is PROCESSING.
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// LastError holds the most recent failure message for operators.
	LastError string `json:"last_error,omitempty"`
}

// Age returns how long the record has existed as of now.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(r.DateInserted)
}

// LeaseExpired reports whether a PROCESSING record's claim is older than the
// given lease duration. Records in other states never have an expired lease.
func (r *Record) LeaseExpired(now time.Time, lease time.Duration) bool {
	if r.Status != StatusProcessing || r.ClaimedAt == nil {
		return false
	}
	return now.Sub(*r.ClaimedAt) >= lease
}
