// Package gate turns cluster-wide lock state into a per-firing decision for
// scheduled tasks. A gated task consults a non-blocking TryLocker before
// every firing and either runs its body or skips it; skipping is the normal
// steady state on every node that does not currently hold the lock.
package gate

// TryLocker is the non-blocking acquire/release contract gated tasks run
// against. TryLock must never block; Unlock must be safe to call after any
// successful TryLock.
type TryLocker interface {
	TryLock() bool
	Unlock()
}

// Remote reports whether this process currently has exclusive access to a
// cluster-wide lock. *client.Client satisfies it.
type Remote interface {
	HasExclusiveAccess() bool
}

// ClientLock adapts a lock client to the TryLocker contract. TryLock is a
// pure read of the client's state and gives no guarantee against concurrent
// local execution; run gated tasks on a single worker per lock name.
type ClientLock struct {
	remote Remote
}

// NewClientLock wraps a lock client.
func NewClientLock(remote Remote) *ClientLock {
	return &ClientLock{remote: remote}
}

// TryLock reports the client's last known lock state.
func (l *ClientLock) TryLock() bool {
	return l.remote.HasExclusiveAccess()
}

// Unlock is a no-op: ownership is connection-scoped, not call-scoped. It
// exists to preserve the acquire/release shape for callers expecting mutex
// semantics.
func (l *ClientLock) Unlock() {}
