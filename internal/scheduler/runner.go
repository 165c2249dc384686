package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/me/redrive/internal/backoff"
	"github.com/me/redrive/internal/processor"
	"github.com/me/redrive/internal/store"
	"github.com/me/redrive/pkg/model"
)

// RunnerConfig holds the per-trigger processing parameters.
type RunnerConfig struct {
	// MaxAge is the selection window; records inserted earlier are ignored.
	MaxAge time.Duration
	// MaxRecords caps how many candidates one tick attempts.
	MaxRecords int
	// ClaimLease is the maximum time a record may stay PROCESSING before a
	// later tick may reclaim it.
	ClaimLease time.Duration
	// CallDeadline bounds each downstream processing attempt.
	CallDeadline time.Duration
	// Workers bounds in-tick parallelism. 1 processes sequentially.
	Workers int
}

// Runner executes one scheduler tick: select candidates, claim each
// exclusively, invoke the processor, and commit the outcome through the
// backoff strategy.
type Runner struct {
	name     string
	store    store.Store
	strategy backoff.Strategy
	selector *Selector
	registry *processor.Registry
	clock    Clock
	config   RunnerConfig
	logger   *slog.Logger
}

// NewRunner creates a Runner for the named trigger.
func NewRunner(name string, st store.Store, strategy backoff.Strategy, reg *processor.Registry, clock Clock, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{
		name:     name,
		store:    st,
		strategy: strategy,
		selector: NewSelector(st, strategy, cfg.ClaimLease, logger),
		registry: reg,
		clock:    clock,
		config:   cfg,
		logger:   logger.With("component", "runner", "trigger", name),
	}
}

// Tick runs a single scheduling iteration. The returned error covers only
// the selection query; per-record outcomes, including persistence faults,
// are reported through the TickResult counts.
func (r *Runner) Tick(ctx context.Context) (model.TickResult, error) {
	result := model.TickResult{Trigger: r.name}
	now := r.clock.Now()

	candidates, err := r.selector.Select(ctx, now, r.config.MaxAge, r.config.MaxRecords)
	if err != nil {
		return result, err
	}
	result.Selected = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	if r.config.Workers == 1 {
		for _, rec := range candidates {
			result.Merge(r.processOne(ctx, rec))
		}
		return result, nil
	}

	// Bounded worker pool. Claim/process/commit stays the unit of atomicity
	// per record, so outcomes are independent across workers.
	deltas := make(chan model.TickResult, len(candidates))
	sem := make(chan struct{}, r.config.Workers)
	var wg sync.WaitGroup
	for _, rec := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(rec *model.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			deltas <- r.processOne(ctx, rec)
		}(rec)
	}
	wg.Wait()
	close(deltas)
	for d := range deltas {
		result.Merge(d)
	}
	return result, nil
}

// processOne runs the claim/process/commit protocol for a single record and
// returns the count deltas it produced.
func (r *Runner) processOne(ctx context.Context, rec *model.Record) model.TickResult {
	var delta model.TickResult

	now := r.clock.Now()
	staleBefore := now.Add(-r.config.ClaimLease)

	prev, claimed, err := r.store.ClaimRecord(ctx, rec.ID, now, staleBefore)
	if err != nil {
		// Store fault, not a business outcome; never touches backoff state.
		delta.PersistErrors++
		r.logger.Error("claim failed", "record_id", rec.ID, "error", err)
		return delta
	}
	if !claimed {
		// Another trigger claimed or resolved the record since selection.
		delta.Skipped++
		r.logger.Debug("claim conflict, record skipped", "record_id", rec.ID, "status", prev)
		return delta
	}
	delta.Claimed++
	rec.Status = model.StatusProcessing
	claimTime := now
	rec.ClaimedAt = &claimTime

	if prev == model.StatusProcessing {
		// The prior holder never committed; the lease has expired. Record the
		// abandoned attempt as a failure and return the record to the pool.
		r.strategy.OnFailure(rec, now)
		rec.Status = model.StatusError
		rec.LastError = "attempt abandoned: claim lease expired"
		if err := r.store.CommitOutcome(ctx, rec); err != nil {
			delta.PersistErrors++
			r.logger.Error("reclaim commit failed", "record_id", rec.ID, "error", err)
			return delta
		}
		delta.Reclaimed++
		r.logger.Warn("stale claim reclaimed", "record_id", rec.ID, "failure_count", rec.FailureCount)
		return delta
	}

	procErr := r.invoke(ctx, rec)
	outcomeAt := r.clock.Now()

	if procErr != nil {
		r.strategy.OnFailure(rec, outcomeAt)
		rec.Status = model.StatusError
		rec.LastError = procErr.Error()
		if err := r.store.CommitOutcome(ctx, rec); err != nil {
			delta.PersistErrors++
			r.logger.Error("outcome commit failed", "record_id", rec.ID, "error", err)
			return delta
		}
		delta.Failed++
		if errors.Is(procErr, context.DeadlineExceeded) {
			r.logger.Info("attempt timed out", "record_id", rec.ID, "failure_count", rec.FailureCount)
		} else {
			r.logger.Info("attempt failed", "record_id", rec.ID, "failure_count", rec.FailureCount, "error", procErr)
		}
		return delta
	}

	r.strategy.OnSuccess(rec, outcomeAt)
	rec.Status = model.StatusSuccess
	rec.LastError = ""
	completed := outcomeAt
	rec.CompletedAt = &completed
	if err := r.store.CommitOutcome(ctx, rec); err != nil {
		delta.PersistErrors++
		r.logger.Error("outcome commit failed", "record_id", rec.ID, "error", err)
		return delta
	}
	delta.Succeeded++
	r.logger.Info("record processed", "record_id", rec.ID)
	return delta
}

// invoke calls the record's processor under the per-attempt deadline.
func (r *Runner) invoke(ctx context.Context, rec *model.Record) error {
	proc, err := r.registry.Get(rec.Kind)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.config.CallDeadline)
	defer cancel()
	return proc.Process(callCtx, rec)
}
