package pool

import (
	"net"
	"sync"
	"time"
)

// Conn is a long-lived transport binding leased to callers for exactly
// one request/response exchange at a time. It implements wire.Transaction.
type Conn struct {
	key     Key
	nc      net.Conn
	seq     uint64
	created time.Time

	mu       sync.Mutex
	lastUse  time.Time
	reqCount int
	broken   bool
}

func newConn(key Key, nc net.Conn, seq uint64) *Conn {
	now := time.Now()
	return &Conn{key: key, nc: nc, seq: seq, created: now, lastUse: now}
}

// Read implements wire.Transaction.
func (c *Conn) Read(p []byte) (int, error) { return c.nc.Read(p) }

// Write implements wire.Transaction.
func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	if err != nil {
		c.MarkBroken()
	}
	return n, err
}

// SetReadDeadline implements the optional deadline interface wire.Stream
// and the Timeout layer use.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.nc.SetReadDeadline(t) }

// SetWriteDeadline implements the optional deadline interface.
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.nc.SetWriteDeadline(t) }

// CloseWrite half-closes the write side when the underlying socket
// supports it (plain TCP does; most TLS conns do not, in which case this
// is a no-op).
func (c *Conn) CloseWrite() error {
	if hc, ok := c.nc.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return nil
}

// Close tears down the underlying socket.
func (c *Conn) Close() error { return c.nc.Close() }

// Key returns the pool bucket this connection belongs to.
func (c *Conn) Key() Key { return c.key }

// Seq returns the monotonic sequence number assigned at creation; it
// exists only to let callers detect reuse of the same connection
// identity. Pipelining is never performed — each connection carries
// exactly one in-flight exchange at a time.
func (c *Conn) Seq() uint64 { return c.seq }

// MarkBroken flags the connection as unusable; it will never be
// returned to the idle set again.
func (c *Conn) MarkBroken() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

// Broken reports whether the connection has been marked broken.
func (c *Conn) Broken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

// NoteRequestServed increments the served-request counter and refreshes
// lastUse; used by the pool's max_requests bound.
func (c *Conn) NoteRequestServed() {
	c.mu.Lock()
	c.reqCount++
	c.lastUse = time.Now()
	c.mu.Unlock()
}

// RequestsServed returns how many requests this connection has carried.
func (c *Conn) RequestsServed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reqCount
}

// IdleSince reports how long the connection has been sitting idle.
func (c *Conn) IdleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastUse)
}

func (c *Conn) touchIdle() {
	c.mu.Lock()
	c.lastUse = time.Now()
	c.mu.Unlock()
}

// probe performs a non-blocking liveness check on an idle connection
// via a one-byte read with an immediate deadline. A timeout
// means nothing is available but the socket is alive; EOF or any other
// error means the peer half-closed or reset it.
func probe(nc net.Conn) bool {
	if err := nc.SetReadDeadline(time.Now()); err != nil {
		return true // can't probe this conn type; optimistically assume healthy
	}
	defer nc.SetReadDeadline(time.Time{}) //nolint:errcheck

	var b [1]byte
	n, err := nc.Read(b[:])
	if n > 0 {
		return false // unsolicited bytes waiting: not safe to reuse
	}
	if err == nil {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}
