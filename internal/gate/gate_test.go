package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRemote always reports the same exclusive-access state.
type fixedRemote bool

func (r fixedRemote) HasExclusiveAccess() bool { return bool(r) }

// switchRemote is a toggleable remote.
type switchRemote struct {
	on atomic.Bool
}

func (r *switchRemote) HasExclusiveAccess() bool { return r.on.Load() }

func TestClientLock_TryLockReflectsRemoteState(t *testing.T) {
	assert.True(t, NewClientLock(fixedRemote(true)).TryLock())
	assert.False(t, NewClientLock(fixedRemote(false)).TryLock())
}

func TestClientLock_UnlockIsNoOp(t *testing.T) {
	remote := &switchRemote{}
	remote.on.Store(true)
	lock := NewClientLock(remote)

	require.True(t, lock.TryLock())
	lock.Unlock()

	// Ownership is connection-scoped; Unlock must not change anything.
	assert.True(t, lock.TryLock())
}

func TestTask_FireRunsWhenLockHeld(t *testing.T) {
	calls := 0
	task := NewTask("report", NewClientLock(fixedRemote(true)), func(ctx context.Context) error {
		calls++
		return nil
	})

	outcome := task.Fire(context.Background())

	assert.True(t, outcome.Ran)
	assert.False(t, outcome.Skipped())
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), task.RanCount())
	assert.Equal(t, uint64(0), task.SkippedCount())
}

func TestTask_FireSkipsWhenLockNotHeld(t *testing.T) {
	task := NewTask("report", NewClientLock(fixedRemote(false)), func(ctx context.Context) error {
		t.Fatal("body must not run without the lock")
		return nil
	})

	outcome := task.Fire(context.Background())

	assert.True(t, outcome.Skipped())
	assert.Equal(t, uint64(1), task.SkippedCount())
	assert.Equal(t, uint64(0), task.RanCount())
}

func TestTask_FirePropagatesBodyError(t *testing.T) {
	boom := errors.New("boom")
	task := NewTask("report", NewClientLock(fixedRemote(true)), func(ctx context.Context) error {
		return boom
	})

	outcome := task.Fire(context.Background())

	assert.True(t, outcome.Ran, "a failing body still counts as a ran firing")
	assert.ErrorIs(t, outcome.Err, boom)
}

func TestTask_CountsOverManyFirings(t *testing.T) {
	remote := &switchRemote{}
	task := NewTask("report", NewClientLock(remote), func(ctx context.Context) error {
		return nil
	})

	const firings = 10
	for i := 0; i < firings; i++ {
		remote.on.Store(i%2 == 0)
		task.Fire(context.Background())
	}

	assert.Equal(t, uint64(5), task.RanCount())
	assert.Equal(t, uint64(5), task.SkippedCount())
}

func TestRunner_NeverHeldRecordsZeroExecutions(t *testing.T) {
	task := NewTask("report", NewClientLock(fixedRemote(false)), func(ctx context.Context) error {
		return nil
	})

	var firings atomic.Uint64
	runner := NewRunner(task, 10*time.Millisecond, zerolog.Nop(),
		WithOnOutcome(func(Outcome) { firings.Add(1) }),
	)
	runner.Start(context.Background())

	require.Eventually(t, func() bool { return firings.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)
	runner.Stop()

	assert.Equal(t, uint64(0), task.RanCount())
	assert.Equal(t, firings.Load(), task.SkippedCount())
}

func TestRunner_AlwaysHeldRunsEveryFiring(t *testing.T) {
	task := NewTask("report", NewClientLock(fixedRemote(true)), func(ctx context.Context) error {
		return nil
	})

	var firings atomic.Uint64
	runner := NewRunner(task, 10*time.Millisecond, zerolog.Nop(),
		WithOnOutcome(func(o Outcome) {
			if o.Ran {
				firings.Add(1)
			}
		}),
	)
	runner.Start(context.Background())

	require.Eventually(t, func() bool { return firings.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)
	runner.Stop()

	assert.Equal(t, uint64(0), task.SkippedCount())
	assert.Equal(t, firings.Load(), task.RanCount())
}

func TestRunner_StopHaltsFiringAndIsIdempotent(t *testing.T) {
	task := NewTask("report", NewClientLock(fixedRemote(true)), func(ctx context.Context) error {
		return nil
	})
	runner := NewRunner(task, 5*time.Millisecond, zerolog.Nop())

	runner.Start(context.Background())
	require.Eventually(t, func() bool { return task.RanCount() > 0 }, 2*time.Second, time.Millisecond)

	runner.Stop()
	runner.Stop()

	count := task.RanCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, task.RanCount(), "no firings after Stop")
}

func TestRunner_ContextCancelStopsLoop(t *testing.T) {
	task := NewTask("report", NewClientLock(fixedRemote(true)), func(ctx context.Context) error {
		return nil
	})
	runner := NewRunner(task, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)
	require.Eventually(t, func() bool { return task.RanCount() > 0 }, 2*time.Second, time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	count := task.RanCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, task.RanCount())
}
