package gate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner fires a gated task periodically on a single worker goroutine. One
// worker per named lock is the intended and required configuration: it makes
// "only one firing runs at a time, cluster-wide" also hold per process,
// since TryLock on a ClientLock is a read, not a real local mutex.
type Runner struct {
	task     *Task
	interval time.Duration
	logger   zerolog.Logger

	onOutcome func(Outcome)

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithOnOutcome sets a callback invoked synchronously after every firing
// with its outcome. Replaces polling a future for the skipped/ran flag.
func WithOnOutcome(fn func(Outcome)) RunnerOption {
	return func(r *Runner) {
		r.onOutcome = fn
	}
}

// NewRunner creates a runner firing task every interval.
func NewRunner(task *Task, interval time.Duration, logger zerolog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		task:     task,
		interval: interval,
		logger: logger.With().
			Str("component", "gate").
			Str("task", task.Name()).
			Logger(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the firing loop. The first firing happens immediately, then
// once per interval until Stop is called or ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop halts the firing loop and waits for any in-progress firing to finish.
// Idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fire(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.fire(ctx)
		}
	}
}

func (r *Runner) fire(ctx context.Context) {
	outcome := r.task.Fire(ctx)
	switch {
	case outcome.Skipped():
		r.logger.Debug().Msg("firing skipped, lock not held")
	case outcome.Err != nil:
		r.logger.Error().Err(outcome.Err).Msg("task failed")
	default:
		r.logger.Debug().Msg("task ran")
	}
	if r.onOutcome != nil {
		r.onOutcome(outcome)
	}
}
