package backoff

import (
	"time"

	"github.com/me/redrive/pkg/model"
)

// Fibonacci spaces retry attempts by growing Fibonacci intervals: after the
// n-th consecutive failure the record waits fib(n) * Unit before it becomes
// eligible again. A success resets the history entirely, so a record that
// fails again later starts over at the fib(1) interval.
type Fibonacci struct {
	// Unit scales the Fibonacci sequence into wall-clock intervals.
	Unit time.Duration
}

// NewFibonacci creates a Fibonacci strategy with the given unit interval.
func NewFibonacci(unit time.Duration) *Fibonacci {
	return &Fibonacci{Unit: unit}
}

func (f *Fibonacci) Name() string { return "fibonacci" }

// Eligible returns true if the record has no failure history or its backoff
// interval has fully elapsed. The boundary is inclusive: a record becomes
// eligible at exactly fib(n) * Unit after its last failure.
func (f *Fibonacci) Eligible(rec *model.Record, now time.Time) bool {
	if rec.Status == model.StatusSuccess {
		return false
	}
	if rec.FailureCount == 0 || rec.LastFailureAt == nil {
		return true
	}
	wait := time.Duration(fib(rec.FailureCount)) * f.Unit
	return now.Sub(*rec.LastFailureAt) >= wait
}

// OnFailure advances the failure history by one step.
func (f *Fibonacci) OnFailure(rec *model.Record, now time.Time) {
	rec.FailureCount++
	t := now
	rec.LastFailureAt = &t
}

// OnSuccess clears the failure history.
func (f *Fibonacci) OnSuccess(rec *model.Record, _ time.Time) {
	rec.FailureCount = 0
	rec.LastFailureAt = nil
}

// fib computes the Fibonacci number with fib(0) = fib(1) = 1.
func fib(n int) int64 {
	a, b := int64(1), int64(1)
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}
