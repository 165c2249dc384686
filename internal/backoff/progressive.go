package backoff

import (
	"time"

	"github.com/me/redrive/pkg/model"
)

// Progressive keeps no per-record backoff state. Retry frequency is governed
// entirely by the tier configuration: each tier (MaxAge, Period) runs on its
// own trigger and selects every non-terminal record younger than MaxAge, so a
// record's effective attempt frequency is the shortest period among the tiers
// whose age window still covers it. As the record ages past each tier's
// MaxAge it falls through to the next, coarser tier.
type Progressive struct{}

// NewProgressive creates a Progressive strategy.
func NewProgressive() *Progressive {
	return &Progressive{}
}

func (p *Progressive) Name() string { return "progressive" }

// Eligible returns true for every non-terminal record. The tier's age window
// is already enforced by the selection query, so there is nothing further to
// check per record.
func (p *Progressive) Eligible(rec *model.Record, _ time.Time) bool {
	return rec.Status != model.StatusSuccess
}

// OnFailure touches no backoff fields; the record simply returns to the pool.
func (p *Progressive) OnFailure(_ *model.Record, _ time.Time) {}

// OnSuccess touches no backoff fields.
func (p *Progressive) OnSuccess(_ *model.Record, _ time.Time) {}
