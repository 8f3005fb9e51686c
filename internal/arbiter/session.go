package arbiter

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side identity of one accepted connection. It is the
// unit to which lock ownership is bound: ownership cannot outlive the
// session's connection. Identity comparisons are by pointer, with the uuid
// kept for logs and the admin API.
type Session struct {
	id         uuid.UUID
	remoteAddr string

	// lockName is written once by the handler goroutine after the identity
	// line arrives, before any claim is made.
	lockName string

	// messages and acquiredAt are written by the handler goroutine and read
	// concurrently by admin snapshots.
	messages   atomic.Uint64
	acquiredAt atomic.Int64 // unix nanos, zero until first acquired
}

// NewSession creates a session for a freshly accepted connection.
func NewSession(remoteAddr string) *Session {
	return &Session{
		id:         uuid.New(),
		remoteAddr: remoteAddr,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// RemoteAddr returns the address of the connected peer.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// LockName returns the lock name the session identified itself with, or the
// empty string before the identity line has arrived.
func (s *Session) LockName() string {
	return s.lockName
}

// Messages returns the number of request/response exchanges completed.
func (s *Session) Messages() uint64 {
	return s.messages.Load()
}

// AcquiredAt returns the time this session acquired its lock, or the zero
// time if it never has.
func (s *Session) AcquiredAt() time.Time {
	nanos := s.acquiredAt.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (s *Session) markAcquired(t time.Time) {
	s.acquiredAt.Store(t.UnixNano())
}

func (s *Session) countMessage() {
	s.messages.Add(1)
}
