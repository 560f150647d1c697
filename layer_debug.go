package httpreq

import (
	"log/slog"
	"time"
)

// teeConn mirrors every byte read from and written to the wrapped
// Transaction to logger at debug level, without altering them.
type teeConn struct {
	connDecorator
	logger *slog.Logger
}

func (t *teeConn) Read(p []byte) (int, error) {
	n, err := t.Transaction.Read(p)
	if n > 0 {
		t.logger.Debug("httpreq: wire read", "bytes", string(p[:n]))
	}
	return n, err
}

func (t *teeConn) Write(p []byte) (int, error) {
	n, err := t.Transaction.Write(p)
	if n > 0 {
		t.logger.Debug("httpreq: wire write", "bytes", string(p[:n]))
	}
	return n, err
}

// debugLayer logs request/response summaries at increasing verbosity:
// 1 logs the request line and final status; 2 adds headers; 3 tees
// every byte read from and written to the wire, in addition to timing.
// It never otherwise touches the call or response it passes through.
func debugLayer(c *call, next Next) (*Response, error) {
	logger := c.opts.Logger
	start := time.Now()

	if c.opts.Verbose >= 1 {
		logger.Debug("httpreq: request", "method", c.req.Method, "url", c.req.Target.String())
	}
	if c.opts.Verbose >= 2 {
		for _, h := range c.req.Header {
			logger.Debug("httpreq: request header", "name", h.Name, "value", h.Value)
		}
	}
	if c.opts.Verbose >= 3 {
		c.tx = &teeConn{connDecorator: connDecorator{Transaction: c.tx}, logger: logger}
	}

	resp, err := next(c)

	if err != nil {
		if c.opts.Verbose >= 1 {
			logger.Debug("httpreq: request failed", "method", c.req.Method, "url", c.req.Target.String(), "error", err)
		}
		return nil, err
	}

	if c.opts.Verbose >= 1 {
		logger.Debug("httpreq: response", "status", resp.Status, "reason", resp.Reason)
	}
	if c.opts.Verbose >= 2 {
		for _, h := range resp.Header {
			logger.Debug("httpreq: response header", "name", h.Name, "value", h.Value)
		}
	}
	if c.opts.Verbose >= 3 {
		logger.Debug("httpreq: timing", "elapsed", time.Since(start))
	}

	return resp, nil
}
