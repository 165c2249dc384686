package model

// Status represents the lifecycle state of a Record.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusError      Status = "ERROR"
	StatusSuccess    Status = "SUCCESS"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid returns true for a recognized status value.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusError, StatusSuccess:
		return true
	}
	return false
}

// IsTerminal returns true if the record is in a final state.
// Only SUCCESS is terminal; ERROR records remain retryable.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess
}

// IsClaimable returns true if the record may be claimed for an attempt.
// PROCESSING is deliberately excluded here; stale PROCESSING records are
// reclaimed through the lease check in the store, not through this predicate.
func (s Status) IsClaimable() bool {
	return s == StatusNew || s == StatusError
}

// ValidTransitions defines the allowed status transitions for Records.
var ValidTransitions = map[Status][]Status{
	StatusNew:        {StatusProcessing},
	StatusError:      {StatusProcessing},
	StatusProcessing: {StatusSuccess, StatusError},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range ValidTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
