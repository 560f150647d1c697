package httpreq

import (
	"github.com/shiroyk/ski-ext/httpreq/internal/pool"
)

// connectionPoolLayer acquires a pooled connection for the request's
// origin and releases it once the layers below (Timeout, Stream) are
// done with it. It never touches the wire itself; Stream does that.
func connectionPoolLayer(client *Client) Layer {
	return func(c *call, next Next) (*Response, error) {
		key := pool.Key{Scheme: c.uri.Scheme, Host: c.uri.Host, Port: c.uri.Port}

		conn, err := client.pool.Acquire(c.ctx, key)
		if err != nil {
			return nil, translatePoolErr(err)
		}
		c.conn = conn
		c.tx = conn

		resp, err := next(c)
		if err != nil {
			conn.MarkBroken()
			client.pool.Release(conn, false)
			return nil, err
		}

		conn.NoteRequestServed()
		client.pool.Release(conn, c.keepAlive)
		return resp, nil
	}
}

func translatePoolErr(err error) error {
	if err == pool.ErrConnectTimeout {
		return newTimeoutError("connect")
	}
	return &IOError{Op: "connect", Cause: err}
}
