package gate

import (
	"context"
	"sync/atomic"

	"github.com/kneutral-org/lockgate/internal/metrics"
)

// Outcome is the result of one firing of a gated task: the body either ran,
// possibly returning an error, or was skipped because the lock was not held.
type Outcome struct {
	Ran bool
	Err error
}

// Skipped reports whether the firing was skipped.
func (o Outcome) Skipped() bool {
	return !o.Ran
}

// Task pairs a unit of work with the lock that gates it. Each call to Fire
// is one firing; cumulative ran/skipped counts are kept for callers that
// need to observe what happened.
type Task struct {
	name string
	lock TryLocker
	fn   func(context.Context) error

	ran     atomic.Uint64
	skipped atomic.Uint64
}

// NewTask creates a gated task. The name labels metrics and logs only.
func NewTask(name string, lock TryLocker, fn func(context.Context) error) *Task {
	return &Task{
		name: name,
		lock: lock,
		fn:   fn,
	}
}

// Name returns the task's label.
func (t *Task) Name() string {
	return t.name
}

// Fire executes one firing: try-acquire, then run the body and release, or
// skip entirely. Skipping is not an error; it is the expected behavior on
// nodes that do not hold the lock.
func (t *Task) Fire(ctx context.Context) Outcome {
	if !t.lock.TryLock() {
		t.skipped.Add(1)
		metrics.RecordTaskFiring(t.name, false)
		return Outcome{Ran: false}
	}
	defer t.lock.Unlock()

	err := t.fn(ctx)
	t.ran.Add(1)
	metrics.RecordTaskFiring(t.name, true)
	return Outcome{Ran: true, Err: err}
}

// RanCount returns how many firings executed the body.
func (t *Task) RanCount() uint64 {
	return t.ran.Load()
}

// SkippedCount returns how many firings were skipped.
func (t *Task) SkippedCount() uint64 {
	return t.skipped.Load()
}
