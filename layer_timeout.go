package httpreq

import (
	"time"

	"github.com/shiroyk/ski-ext/httpreq/internal/wire"
)

// connDecorator forwards the optional deadline/half-close/force-close
// capabilities Stream relies on through to whatever Transaction it
// wraps, so Debug and Timeout can each wrap c.tx without one undoing
// the other's wrapper.
type connDecorator struct {
	wire.Transaction
}

func (d connDecorator) SetReadDeadline(t time.Time) error {
	if x, ok := d.Transaction.(interface{ SetReadDeadline(time.Time) error }); ok {
		return x.SetReadDeadline(t)
	}
	return nil
}

func (d connDecorator) SetWriteDeadline(t time.Time) error {
	if x, ok := d.Transaction.(interface{ SetWriteDeadline(time.Time) error }); ok {
		return x.SetWriteDeadline(t)
	}
	return nil
}

func (d connDecorator) CloseWrite() error {
	if x, ok := d.Transaction.(interface{ CloseWrite() error }); ok {
		return x.CloseWrite()
	}
	return nil
}

func (d connDecorator) Close() error {
	if x, ok := d.Transaction.(interface{ Close() error }); ok {
		return x.Close()
	}
	return nil
}

// idleReadConn re-arms a read deadline every time a Read succeeds, so
// the deadline measures time since the last byte arrived rather than
// time since the exchange began — the same pattern a websocket's pong
// handler uses to reset its read deadline on every pong it receives.
type idleReadConn struct {
	connDecorator
	timeout time.Duration
}

func (i *idleReadConn) Read(p []byte) (int, error) {
	n, err := i.Transaction.Read(p)
	if err == nil {
		_ = i.SetReadDeadline(time.Now().Add(i.timeout))
	}
	return n, err
}

// timeoutLayer arms opts.ReadTimeout as an idle read deadline on the
// Transaction: the first read must land within ReadTimeout, and every
// successful read afterward re-arms it, so a response that streams
// steadily for longer than ReadTimeout is never wrongly aborted — only
// a read that actually stalls trips it. The deadline is cleared before
// the connection goes back to the pool so a reused connection starts
// its next request fresh. ReadTimeout's zero value disables this layer.
func timeoutLayer(c *call, next Next) (*Response, error) {
	if c.opts.ReadTimeout <= 0 {
		return next(c)
	}

	deadline := time.Now().Add(c.opts.ReadTimeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, &IOError{Op: "read", Cause: err}
	}
	defer c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	c.tx = &idleReadConn{connDecorator: connDecorator{Transaction: c.tx}, timeout: c.opts.ReadTimeout}

	resp, err := next(c)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if asNetError(err, &netErr) && netErr.Timeout() {
			return nil, newTimeoutError("read")
		}
		return nil, err
	}
	return resp, nil
}

// asNetError reports whether err (or something it wraps) implements the
// net.Error-shaped Timeout() bool method, without importing net here.
func asNetError(err error, target *interface{ Timeout() bool }) bool {
	for err != nil {
		if t, ok := err.(interface{ Timeout() bool }); ok {
			*target = t
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
