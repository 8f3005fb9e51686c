package arbiter

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Table is the concurrent map from lock name to owning session. It provides
// the exact mutual-exclusion guarantee of the arbiter: at most one session
// owns a given name at any instant, enforced by the atomic insert-if-absent
// and compare-and-delete primitives of sync.Map. Contention is isolated per
// name; there is no table-wide mutex.
type Table struct {
	owners sync.Map // lock name -> *Session
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{}
}

// Claim attempts to make session the owner of name. It reports whether the
// session owns the lock after the call, and whether this call is the one
// that acquired it. Claiming a name already owned by the same session is an
// idempotent re-affirmation; a name owned by another session is left
// untouched.
func (t *Table) Claim(name string, session *Session) (granted, acquired bool) {
	owner, loaded := t.owners.LoadOrStore(name, session)
	if !loaded {
		return true, true
	}
	return owner.(*Session) == session, false
}

// Release removes the entry for name only if session is its current owner,
// compared by identity. A stale session's delayed cleanup therefore never
// evicts a newer owner. It reports whether an entry was actually removed.
func (t *Table) Release(name string, session *Session) bool {
	return t.owners.CompareAndDelete(name, session)
}

// Owner returns the current owner of name, if any.
func (t *Table) Owner(name string) (*Session, bool) {
	v, ok := t.owners.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Len counts the lock names currently owned.
func (t *Table) Len() int {
	n := 0
	t.owners.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// LockInfo describes one held lock for observability surfaces.
type LockInfo struct {
	Name       string    `json:"name"`
	SessionID  uuid.UUID `json:"sessionId"`
	RemoteAddr string    `json:"remoteAddr"`
	AcquiredAt time.Time `json:"acquiredAt"`
	Messages   uint64    `json:"messages"`
}

// Snapshot returns the currently held locks. The result is a point-in-time
// view; entries may be claimed or released while it is being assembled.
func (t *Table) Snapshot() []LockInfo {
	infos := make([]LockInfo, 0)
	t.owners.Range(func(k, v any) bool {
		s := v.(*Session)
		infos = append(infos, LockInfo{
			Name:       k.(string),
			SessionID:  s.ID(),
			RemoteAddr: s.RemoteAddr(),
			AcquiredAt: s.AcquiredAt(),
			Messages:   s.Messages(),
		})
		return true
	})
	return infos
}
