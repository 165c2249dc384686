package scheduler

import "time"

// Clock supplies the current time. Injectable so tests can drive eligibility
// and lease expiry deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }
