package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/redrive/internal/backoff"
	"github.com/me/redrive/internal/store"
	"github.com/me/redrive/pkg/model"
)

// Selector issues the bounded candidate query and applies the strategy's
// eligibility filter.
type Selector struct {
	store    store.Store
	strategy backoff.Strategy
	lease    time.Duration
	logger   *slog.Logger
}

// NewSelector creates a Selector.
func NewSelector(st store.Store, strategy backoff.Strategy, lease time.Duration, logger *slog.Logger) *Selector {
	return &Selector{
		store:    st,
		strategy: strategy,
		lease:    lease,
		logger:   logger.With("component", "selector"),
	}
}

// Select returns the eligible candidates for one tick, newest first. Under
// capacity limits the newest-first ordering deliberately prioritizes fresh
// records over old ones that have already consumed many retries.
//
// Stale PROCESSING records (lease expired) bypass the eligibility filter:
// they are reclaim candidates, not retry candidates.
func (s *Selector) Select(ctx context.Context, now time.Time, maxAge time.Duration, maxRecords int) ([]*model.Record, error) {
	cutoff := now.Add(-maxAge)
	staleBefore := now.Add(-s.lease)

	candidates, err := s.store.SelectCandidates(ctx, cutoff, staleBefore, maxRecords)
	if err != nil {
		return nil, err
	}

	eligible := candidates[:0]
	for _, rec := range candidates {
		if rec.Status == model.StatusProcessing || s.strategy.Eligible(rec, now) {
			eligible = append(eligible, rec)
		}
	}

	s.logger.Debug("candidates selected",
		"queried", len(candidates),
		"eligible", len(eligible),
		"cutoff", cutoff,
	)
	return eligible, nil
}
