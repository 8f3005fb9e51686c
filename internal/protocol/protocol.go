// Package protocol defines the wire vocabulary and line framing for the
// lockgate arbiter.
//
// The exchange is line-oriented text over one long-lived TCP connection per
// logical task. The first line a client writes is the name of the lock it
// wants for the entire life of the connection. After that the client sends
// "LOCK" and the server answers "LOCKED" or "REJECTED", once per exchange.
// There is no release message: ownership ends when the connection does.
package protocol

import (
	"bufio"
	"net"
	"strings"
	"time"
)

const (
	// CmdLock is the keepalive/claim command a client sends each cycle.
	CmdLock = "LOCK"

	// RespLocked tells the client it owns the lock for this connection.
	RespLocked = "LOCKED"

	// RespRejected tells the client another session owns the lock.
	RespRejected = "REJECTED"
)

// Conn wraps a net.Conn with buffered, line-oriented reads and writes.
// It is not safe for concurrent use; each session is driven by one goroutine.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewConn wraps an established connection.
func NewConn(c net.Conn) *Conn {
	return &Conn{
		conn: c,
		r:    bufio.NewReader(c),
		w:    bufio.NewWriter(c),
	}
}

// ReadLine reads one newline-terminated line, waiting at most timeout.
// A timeout of zero leaves any previously set deadline in place.
// The returned line has its trailing "\n" (and optional "\r") stripped.
func (c *Conn) ReadLine(timeout time.Duration) (string, error) {
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return "", err
		}
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine writes one line followed by "\n" and flushes it to the socket.
func (c *Conn) WriteLine(line string) error {
	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteIP extracts the bare IP of the peer, without the port. Used for
// allow-list matching. Returns the full address string when it has no port.
func RemoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
