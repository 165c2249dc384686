package model

// TickResult summarizes one scheduler tick for logging and metrics.
//
// Failed counts business-level processing failures (including deadline
// timeouts). PersistErrors counts infrastructure faults in the store itself;
// those never consume a record's retry budget and a nonzero value is a
// distinct operational signal.
type TickResult struct {
	Trigger       string `json:"trigger"`
	Selected      int    `json:"selected"`
	Claimed       int    `json:"claimed"`
	Succeeded     int    `json:"succeeded"`
	Failed        int    `json:"failed"`
	Skipped       int    `json:"skipped"`
	Reclaimed     int    `json:"reclaimed"`
	PersistErrors int    `json:"persist_errors"`
}

// Merge adds the counts from other into r. Used when a tick's per-record
// outcomes are gathered from parallel workers.
func (r *TickResult) Merge(other TickResult) {
	r.Selected += other.Selected
	r.Claimed += other.Claimed
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Reclaimed += other.Reclaimed
	r.PersistErrors += other.PersistErrors
}
