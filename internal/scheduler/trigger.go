package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/me/redrive/internal/metrics"
	"github.com/me/redrive/pkg/model"
)

// Trigger wraps a Runner with the single-flight guard: a new tick for this
// trigger must not start while the previous one is still in flight. An
// overlapping fire is skipped and logged, never queued, so concurrency cannot
// grow without bound when processing outlasts the trigger period.
type Trigger struct {
	name     string
	runner   *Runner
	observer metrics.TickObserver
	clock    Clock
	logger   *slog.Logger

	inFlight sync.Mutex

	mu         sync.Mutex
	lastRun    time.Time
	lastResult model.TickResult
}

// TriggerState is a snapshot of a trigger's schedule state for the stats API.
type TriggerState struct {
	Name       string           `json:"name"`
	LastRun    *time.Time       `json:"last_run,omitempty"`
	LastResult model.TickResult `json:"last_result"`
}

// NewTrigger creates a Trigger around the runner.
func NewTrigger(name string, runner *Runner, obs metrics.TickObserver, clock Clock, logger *slog.Logger) *Trigger {
	return &Trigger{
		name:     name,
		runner:   runner,
		observer: obs,
		clock:    clock,
		logger:   logger.With("component", "trigger", "trigger", name),
	}
}

// Name returns the trigger's name.
func (t *Trigger) Name() string { return t.name }

// Fire runs one tick unless the previous tick is still in flight, in which
// case the fire is dropped.
func (t *Trigger) Fire(ctx context.Context) {
	if !t.inFlight.TryLock() {
		t.observer.ObserveSkippedTick(t.name)
		t.logger.Warn("tick skipped, previous tick still running")
		return
	}
	defer t.inFlight.Unlock()

	start := t.clock.Now()
	res, err := t.runner.Tick(ctx)
	elapsed := t.clock.Now().Sub(start)
	if err != nil {
		t.logger.Error("tick failed", "error", err)
		return
	}

	t.mu.Lock()
	t.lastRun = start
	t.lastResult = res
	t.mu.Unlock()

	t.observer.ObserveTick(res, elapsed)
	if res.Selected > 0 || res.PersistErrors > 0 {
		t.logger.Info("tick complete",
			"selected", res.Selected,
			"claimed", res.Claimed,
			"succeeded", res.Succeeded,
			"failed", res.Failed,
			"skipped", res.Skipped,
			"reclaimed", res.Reclaimed,
			"persist_errors", res.PersistErrors,
		)
	}
}

// State returns a snapshot of the trigger's last run.
func (t *Trigger) State() TriggerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := TriggerState{Name: t.name, LastResult: t.lastResult}
	if !t.lastRun.IsZero() {
		lr := t.lastRun
		state.LastRun = &lr
	}
	return state
}
