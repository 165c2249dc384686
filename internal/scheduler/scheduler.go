// Package scheduler contains the retry scheduling core: candidate selection,
// the claim/process/commit protocol around each attempt, and the periodic
// triggers that drive ticks.
package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/me/redrive/internal/backoff"
	"github.com/me/redrive/internal/config"
	"github.com/me/redrive/internal/metrics"
	"github.com/me/redrive/internal/processor"
	"github.com/me/redrive/internal/store"
)

// Scheduler owns the configured triggers and their periodic schedules.
// Fibonacci mode runs one trigger on a fixed period; progressive mode runs
// one trigger per tier, each on its own period. Triggers act on disjoint
// claim state per record, so they may run concurrently with each other.
type Scheduler struct {
	cron     *cron.Cron
	triggers []*Trigger
	logger   *slog.Logger
	doneCh   chan struct{}
}

// New assembles a Scheduler from the configuration.
func New(cfg config.Config, st store.Store, reg *processor.Registry, obs metrics.TickObserver, clock Clock, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger.With("component", "scheduler"),
		doneCh: make(chan struct{}),
	}

	base := RunnerConfig{
		MaxRecords:   cfg.MaxRecords,
		ClaimLease:   cfg.ClaimLease.Std(),
		CallDeadline: cfg.CallDeadline.Std(),
		Workers:      cfg.Workers,
	}

	switch cfg.Strategy {
	case config.StrategyProgressive:
		strategy := backoff.NewProgressive()
		for _, tier := range cfg.Tiers {
			rc := base
			rc.MaxAge = tier.MaxAge.Std()
			name := "tier-" + formatDuration(tier.MaxAge.Std())
			runner := NewRunner(name, st, strategy, reg, clock, rc, logger)
			s.addTrigger(NewTrigger(name, runner, obs, clock, logger), tier.Period.Std())
		}
	default:
		strategy := backoff.NewFibonacci(cfg.FibUnit.Std())
		rc := base
		rc.MaxAge = cfg.MaxAge.Std()
		runner := NewRunner("fibonacci", st, strategy, reg, clock, rc, logger)
		s.addTrigger(NewTrigger("fibonacci", runner, obs, clock, logger), cfg.TickInterval.Std())
	}

	return s
}

func (s *Scheduler) addTrigger(t *Trigger, period time.Duration) {
	s.triggers = append(s.triggers, t)
	s.cron.Schedule(cron.Every(period), cron.FuncJob(func() {
		t.Fire(context.Background())
	}))
	s.logger.Info("trigger scheduled", "trigger", t.Name(), "period", period)
}

// Start begins firing triggers on their periods. Blocks until ctx is cancelled,
// then waits for in-flight ticks to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "triggers", len(s.triggers))

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	close(s.doneCh)
	return ctx.Err()
}

// RunOnce fires every trigger once, synchronously, and returns the resulting
// schedule states. Used by the manual tick command.
func (s *Scheduler) RunOnce(ctx context.Context) []TriggerState {
	for _, t := range s.triggers {
		t.Fire(ctx)
	}
	return s.Triggers()
}

// Triggers returns a snapshot of every trigger's schedule state.
func (s *Scheduler) Triggers() []TriggerState {
	states := make([]TriggerState, len(s.triggers))
	for i, t := range s.triggers {
		states[i] = t.State()
	}
	return states
}

// formatDuration renders a duration compactly for trigger names, e.g.
// 24h0m0s becomes 24h.
func formatDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
