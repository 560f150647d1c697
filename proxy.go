package httpreq

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/shiroyk/ski-ext/httpreq/internal/pool"
)

// roundRobinProxy cycles through a configured proxy list on every dial,
// spreading outbound connections across them one at a time.
type roundRobinProxy struct {
	urls  []*url.URL
	index uint32
}

func newRoundRobinProxy(raw []string) (*roundRobinProxy, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	urls := make([]*url.URL, len(raw))
	for i, p := range raw {
		u, err := url.Parse(p)
		if err != nil {
			return nil, &ArgumentError{Field: "proxies", Msg: fmt.Sprintf("invalid proxy URL %q: %v", p, err)}
		}
		urls[i] = u
	}
	return &roundRobinProxy{urls: urls}, nil
}

// next returns the next proxy URL in rotation.
func (r *roundRobinProxy) next() *url.URL {
	i := atomic.AddUint32(&r.index, 1) - 1
	return r.urls[i%uint32(len(r.urls))]
}

// newEngineDialer builds the pool.DialFunc for opts: a plain/ALPN-pinned
// TLS dialer, optionally routed through a rotating proxy list with
// CONNECT tunneling for https targets, or the caller's own DialFunc
// override when one is supplied.
func newEngineDialer(opts Options) pool.DialFunc {
	base := pool.NewDialer(opts.ConnectTimeout, opts.verifySSL())

	if opts.DialFunc != nil {
		base.NetDialer = nil // caller's DialFunc replaces plain TCP dialing entirely
	}

	rr, err := newRoundRobinProxy(opts.Proxies)
	if err == nil && rr != nil {
		base.ProxyDial = func(ctx context.Context, key pool.Key) (net.Conn, error) {
			return dialViaProxy(ctx, rr.next(), key, opts)
		}
	}

	if opts.DialFunc != nil {
		plainDial := func(ctx context.Context, network, addr string) (net.Conn, error) {
			return opts.DialFunc(ctx, network, addr)
		}
		if base.ProxyDial == nil {
			base.ProxyDial = func(ctx context.Context, key pool.Key) (net.Conn, error) {
				return plainDial(ctx, "tcp", net.JoinHostPort(key.Host, key.Port))
			}
		}
	}

	return base.Dial
}

// dialViaProxy connects to proxyURL and, for an https target, issues an
// HTTP CONNECT to tunnel through it; the returned net.Conn is otherwise
// a plain TCP socket to the proxy (TLS, if needed, is layered on top by
// the caller, same as a direct dial).
func dialViaProxy(ctx context.Context, proxyURL *url.URL, key pool.Key, opts Options) (net.Conn, error) {
	d := net.Dialer{Timeout: opts.ConnectTimeout}
	proxyAddr := proxyURL.Host
	if proxyURL.Port() == "" {
		proxyAddr = net.JoinHostPort(proxyURL.Hostname(), "80")
	}

	nc, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, &IOError{Op: "proxy dial", Cause: err}
	}

	if key.Scheme != "https" {
		return nc, nil
	}

	target := net.JoinHostPort(key.Host, key.Port)
	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", target, target)
	if u := proxyURL.User; u != nil {
		req += "Proxy-Authorization: Basic " + basicAuthToken(u) + "\r\n"
	}
	req += "\r\n"

	if dl, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(dl)
	}
	if _, err := nc.Write([]byte(req)); err != nil {
		_ = nc.Close()
		return nil, &IOError{Op: "proxy CONNECT", Cause: err}
	}

	br := bufio.NewReader(nc)
	status, err := readConnectStatusLine(br)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	if status < 200 || status >= 300 {
		_ = nc.Close()
		return nil, &StatusError{Status: status}
	}
	_ = nc.SetDeadline(time.Time{})

	if br.Buffered() > 0 {
		return &bufferedConn{Conn: nc, r: br}, nil
	}
	return nc, nil
}

// readConnectStatusLine reads "HTTP/1.x NNN ..." and the header block
// that follows it, returning the status code.
func readConnectStatusLine(br *bufio.Reader) (int, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return 0, &IOError{Op: "proxy CONNECT response", Cause: err}
	}
	var major, minor, status int
	var rest string
	if _, err := fmt.Sscanf(line, "HTTP/%d.%d %d %s", &major, &minor, &status, &rest); err != nil {
		return 0, &ParsingError{Kind: "proxy CONNECT status line", At: line}
	}
	for {
		hline, err := br.ReadString('\n')
		if err != nil {
			return 0, &IOError{Op: "proxy CONNECT headers", Cause: err}
		}
		if hline == "\r\n" || hline == "\n" {
			break
		}
	}
	return status, nil
}

// bufferedConn wraps a net.Conn whose bufio.Reader has already consumed
// bytes past the CONNECT response (e.g. the start of the TLS
// handshake the proxy forwarded eagerly).
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) { return b.r.Read(p) }

func basicAuthToken(u *url.Userinfo) string {
	pass, _ := u.Password()
	return base64.StdEncoding.EncodeToString([]byte(u.Username() + ":" + pass))
}
