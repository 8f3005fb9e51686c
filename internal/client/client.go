// Package client implements the reconnecting lock client. A Client owns one
// long-lived connection to the arbiter and keeps a single boolean up to
// date: whether this process currently has exclusive access to its lock
// name. Callers only ever read that boolean; all networking happens on a
// background goroutine that reconnects forever until Shutdown.
package client

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kneutral-org/lockgate/internal/metrics"
	"github.com/kneutral-org/lockgate/internal/protocol"
)

const (
	// DefaultReadTimeout is the default socket read timeout. It must
	// exceed the server's response interval or healthy connections will
	// be dropped between keepalive replies.
	DefaultReadTimeout = 4000 * time.Millisecond

	// DefaultConnectTimeout is the default dial timeout.
	DefaultConnectTimeout = 2000 * time.Millisecond

	// DefaultRetryDelay is the default pause between connection attempts.
	DefaultRetryDelay = 2000 * time.Millisecond
)

// Config holds the client's connection settings.
type Config struct {
	// Host and Port locate the arbiter.
	Host string
	Port int

	// LockName is the name this client claims for the life of each
	// connection. It is sent once, as the first line.
	LockName string

	// ReadTimeout, ConnectTimeout and RetryDelay default to the package
	// constants when zero.
	ReadTimeout    time.Duration
	ConnectTimeout time.Duration
	RetryDelay     time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ReadTimeout == 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = DefaultRetryDelay
	}
	return out
}

// Validate rejects settings the acquire loop cannot work with.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in range 1-65535, actual: %d", c.Port)
	}
	if c.LockName == "" {
		return fmt.Errorf("lock name is required")
	}
	return nil
}

// Client maintains the connection to the arbiter. Safe for concurrent use:
// the exported methods never block on the network.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	exclusive atomic.Bool

	mu   sync.Mutex
	conn net.Conn

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a client and starts its background acquire loop. The loop
// runs until Shutdown; connection failures are absorbed and retried, never
// surfaced to the caller.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg: cfg.withDefaults(),
		logger: logger.With().
			Str("component", "lockclient").
			Str("lock", cfg.LockName).
			Logger(),
		stopCh: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c, nil
}

// HasExclusiveAccess reports whether this client currently holds its lock.
// It never blocks; it reflects the last protocol response only.
func (c *Client) HasExclusiveAccess() bool {
	return c.exclusive.Load()
}

// LockName returns the name of the lock this client claims.
func (c *Client) LockName() string {
	return c.cfg.LockName
}

// Shutdown stops the background loop and releases its socket. Idempotent;
// returns once the loop has exited.
func (c *Client) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
}

func (c *Client) stopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// run is the acquire loop: connect, exchange until something breaks, mark
// access lost, wait out the retry delay, reconnect.
func (c *Client) run() {
	defer c.wg.Done()

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	for {
		if c.stopping() {
			return
		}
		c.session(addr)
		c.exclusive.Store(false)

		select {
		case <-c.stopCh:
			return
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

// session runs one connection from dial to failure. All errors end the
// session; the caller decides whether to retry.
func (c *Client) session(addr string) {
	metrics.RecordClientReconnect(c.cfg.LockName)

	conn, err := net.DialTimeout("tcp", addr, c.cfg.ConnectTimeout)
	if err != nil {
		c.logger.Debug().Err(err).Msg("connect failed")
		return
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	pc := protocol.NewConn(conn)
	if err := pc.WriteLine(c.cfg.LockName); err != nil {
		c.logger.Debug().Err(err).Msg("sending identity line failed")
		return
	}
	c.logger.Debug().Str("addr", addr).Msg("connected")

	for !c.stopping() {
		if err := pc.WriteLine(protocol.CmdLock); err != nil {
			c.logger.Debug().Err(err).Msg("request failed")
			return
		}
		reply, err := pc.ReadLine(c.cfg.ReadTimeout)
		if err != nil {
			c.logger.Debug().Err(err).Msg("reply failed")
			return
		}
		switch reply {
		case protocol.RespLocked:
			if !c.exclusive.Swap(true) {
				c.logger.Info().Msg("exclusive access granted")
			}
		case protocol.RespRejected:
			if c.exclusive.Swap(false) {
				c.logger.Info().Msg("exclusive access lost")
			}
		default:
			// Anything else is a protocol violation; treat it like a
			// connection failure and reconnect.
			c.logger.Warn().Str("reply", reply).Msg("unexpected reply")
			return
		}
	}
}
