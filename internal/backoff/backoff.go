// Package backoff decides when a backlog record is due for another
// processing attempt and how its retry history changes on each outcome.
package backoff

import (
	"time"

	"github.com/me/redrive/pkg/model"
)

// Strategy is the retry-eligibility policy a scheduler runs under.
//
// Eligible must be a pure function of the record state and now. OnFailure and
// OnSuccess mutate the record's backoff fields in place; the caller persists
// the record afterwards.
type Strategy interface {
	// Name identifies the strategy in logs and config.
	Name() string

	// Eligible reports whether the record is due for another attempt at now.
	Eligible(rec *model.Record, now time.Time) bool

	// OnFailure records a failed attempt at now.
	OnFailure(rec *model.Record, now time.Time)

	// OnSuccess records a successful attempt at now.
	OnSuccess(rec *model.Record, now time.Time)
}
