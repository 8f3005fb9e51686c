// Package arbiter implements the central lock arbiter: a TCP server that
// grants exactly one named lock to exactly one connected session at a time.
// Ownership is connection-scoped; a session keeps its lock for as long as its
// connection stays healthy and loses it the moment the connection ends.
package arbiter

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kneutral-org/lockgate/internal/config"
	"github.com/kneutral-org/lockgate/internal/logging"
	"github.com/kneutral-org/lockgate/internal/metrics"
	"github.com/kneutral-org/lockgate/internal/protocol"
)

// Config holds the arbiter's network settings.
type Config struct {
	// Addr is the TCP listen address, e.g. ":12321" or "127.0.0.1:0".
	Addr string

	// ReadTimeout bounds each line read from a session. It must exceed the
	// response interval of the peers or connections will be spuriously
	// dropped between keepalive exchanges.
	ReadTimeout time.Duration

	// ResponseInterval is how long a session handler sleeps after each
	// reply before reading the next request. This throttles the exchange
	// and sets the de facto re-arbitration cadence.
	ResponseInterval time.Duration

	// AllowFrom optionally restricts which source IP addresses may
	// connect. Empty means any address is accepted.
	AllowFrom []string
}

// Validate rejects settings below the enforced floors. Violations are fatal
// at construction; values are never silently clamped.
func (c *Config) Validate() error {
	if c.ReadTimeout < config.MinReadTimeout {
		return fmt.Errorf("read timeout must be at least %v, actual: %v", config.MinReadTimeout, c.ReadTimeout)
	}
	if c.ResponseInterval < config.MinResponseInterval {
		return fmt.Errorf("response interval must be at least %v, actual: %v", config.MinResponseInterval, c.ResponseInterval)
	}
	return nil
}

// Server accepts client connections and arbitrates lock ownership between
// them. One goroutine is spawned per accepted connection; sessions fail
// independently and never take the server down with them.
type Server struct {
	cfg       Config
	logger    zerolog.Logger
	table     *Table
	allowFrom map[string]struct{}

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
}

// NewServer creates a server for the given configuration.
func NewServer(cfg Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "arbiter").Logger(),
		table:  NewTable(),
	}
	if len(cfg.AllowFrom) > 0 {
		s.allowFrom = make(map[string]struct{}, len(cfg.AllowFrom))
		for _, addr := range cfg.AllowFrom {
			s.allowFrom[addr] = struct{}{}
		}
	}
	return s, nil
}

// Table exposes the lock table for observability surfaces.
func (s *Server) Table() *Table {
	return s.table
}

// Listen binds the listening socket without accepting yet. Serve calls it
// implicitly; it is separate so callers can learn the bound address before
// serving, which matters when the configured port is 0.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listen address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown closes the listener. It blocks
// the calling goroutine and returns nil after a clean shutdown.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if len(s.allowFrom) == 0 {
		s.logger.Info().Stringer("addr", ln.Addr()).Msg("listening for connections from any address")
	} else {
		s.logger.Info().Stringer("addr", ln.Addr()).Strs("allowFrom", s.cfg.AllowFrom).Msg("listening")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.admit(conn) {
			continue
		}
		go s.handleConn(conn)
	}
}

// Shutdown closes the listening socket, releasing the goroutine blocked in
// Serve. It is idempotent. In-flight sessions are not cancelled: each drains
// independently when its own socket closes or times out.
func (s *Server) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		if err := ln.Close(); err != nil {
			s.logger.Error().Err(err).Msg("closing listener")
		}
	}
}

// admit applies the source-address allow-list. It reports whether the
// connection may proceed, closing it otherwise.
func (s *Server) admit(conn net.Conn) bool {
	if len(s.allowFrom) == 0 {
		return true
	}
	ip := protocol.RemoteIP(conn.RemoteAddr())
	if _, ok := s.allowFrom[ip]; ok {
		return true
	}
	metrics.ConnectionsFiltered.Inc()
	s.logger.Warn().Str("remoteAddr", conn.RemoteAddr().String()).Msg("connection refused by allow-list")
	_ = conn.Close()
	return false
}

// handleConn runs the full lifecycle of one session: await the identity
// line, serve the claim loop, then tear down. Teardown runs unconditionally,
// panics included, so no lock stays owned by a session whose connection is
// gone.
func (s *Server) handleConn(conn net.Conn) {
	metrics.SessionsTotal.Inc()
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}

	session := NewSession(conn.RemoteAddr().String())
	logger := logging.SessionLogger(s.logger, session.ID().String(), session.RemoteAddr())
	pc := protocol.NewConn(conn)

	defer s.teardown(pc, session, logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("session handler panicked")
		}
	}()

	// The first line written by the client names the lock for the entire
	// life of this connection.
	lockName, err := pc.ReadLine(s.cfg.ReadTimeout)
	if err != nil {
		logger.Debug().Err(err).Msg("connection ended before identity line")
		return
	}
	if lockName == "" {
		// An unnamed lock can never be released on teardown; refuse it.
		logger.Warn().Msg("empty identity line")
		return
	}
	session.lockName = lockName
	logger = logger.With().Str("lock", lockName).Logger()

	for s.exchange(pc, session, logger) {
	}
}

// exchange serves one request/response cycle. It reports whether the session
// can be retained for the next cycle.
func (s *Server) exchange(pc *protocol.Conn, session *Session, logger zerolog.Logger) bool {
	// The content of the request line does not matter, only its arrival
	// within the read timeout.
	if _, err := pc.ReadLine(s.cfg.ReadTimeout); err != nil {
		logger.Debug().Err(err).Msg("session read ended")
		return false
	}

	granted, acquired := s.table.Claim(session.lockName, session)
	if acquired {
		session.markAcquired(time.Now())
		metrics.LocksHeld.Inc()
		logger.Info().Msg("acquired")
	}
	metrics.RecordClaim(granted)

	reply := protocol.RespRejected
	if granted {
		reply = protocol.RespLocked
	}
	if err := pc.WriteLine(reply); err != nil {
		logger.Debug().Err(err).Msg("session write failed")
		return false
	}
	session.countMessage()
	metrics.SessionMessages.Inc()

	// Throttle controlled by the server. Determines the frequency with
	// which the lock is maintained.
	time.Sleep(s.cfg.ResponseInterval)
	return true
}

// teardown releases any ownership held by the session, closes the socket and
// logs a summary. Driven from handleConn via defer so it runs regardless of
// how the session ended.
func (s *Server) teardown(pc *protocol.Conn, session *Session, logger zerolog.Logger) {
	if name := session.lockName; name != "" {
		if s.table.Release(name, session) {
			metrics.LocksHeld.Dec()
			logger.Info().Time("heldSince", session.AcquiredAt()).Msg("released")
		}
	}
	if err := pc.Close(); err != nil {
		logger.Debug().Err(err).Msg("closing session socket")
	}
	logger.Info().Uint64("messages", session.Messages()).Msg("session terminated")
}
