package httpreq

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/shiroyk/ski-ext/httpreq/internal/pool"
)

// DialFunc overrides how the connection pool dials new sockets; tests
// use it to point the engine at an in-memory listener.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client is a configured instance of the engine: a connection pool, a
// default cookie jar, and default Options used by every call that
// passes none of its own.
type Client struct {
	defaults Options
	pool     *pool.Pool
	jar      Jar

	awsCreds sync.Map // region string -> aws.CredentialsProvider
}

// New builds a Client with the given default Options (missing fields are
// filled from defaults), and its own private connection pool.
func New(opts Options) *Client {
	opts.fillDefaults()
	c := &Client{defaults: opts}
	c.pool = newPool(opts)
	if opts.Jar != nil {
		c.jar = opts.Jar
	} else if opts.Cookies {
		c.jar = NewJar()
	}
	return c
}

func newPool(opts Options) *pool.Pool {
	dialer := newEngineDialer(opts)
	return pool.New(pool.Options{
		PerHostLimit: opts.ConnectionLimitPerHost,
		TotalLimit:   opts.ConnectionLimit,
		MaxRequests:  opts.MaxRequestsPerConn,
		IdleTimeout:  opts.IdleTimeout,
		Dial:         dialer,
		Logger:       opts.Logger,
	})
}

// mergeOptions returns the client's defaults when opts is nil. Otherwise
// opts replaces them as a whole (package defaults fill its unset fields);
// the client's defaults are not merged field by field. In both cases the
// client's jar is used when the result has none.
func (c *Client) mergeOptions(opts *Options) Options {
	merged := c.defaults
	if opts != nil {
		merged = *opts
		merged.fillDefaults()
	}
	if merged.Jar == nil {
		merged.Jar = c.jar
	}
	return merged
}

// Do sends one request through the layer stack and returns the final
// Response, or a classified error.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers map[string]string, body any, opts *Options) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	merged := c.mergeOptions(opts)

	target, err := ParseURI(rawURL)
	if err != nil {
		return nil, err
	}
	b, impliedContentType, err := CoerceBody(body)
	if err != nil {
		return nil, err
	}
	var hl HeaderList
	for k, v := range headers {
		hl.Add(k, v)
	}
	if impliedContentType != "" && hl.Get("Content-Type") == "" {
		hl.Set("Content-Type", impliedContentType)
	}

	cc := &call{
		ctx:    ctx,
		method: method,
		uri:    target,
		header: hl,
		body:   b,
		opts:   &merged,
		client: c,
	}

	stack := NewStack(&merged, c)
	return stack.run(cc)
}

// Open sends the request but routes the response body straight to
// iofunc's reader as it streams off the wire, instead of buffering it
// into Response.Body: the Stream layer writes directly into
// opts.ResponseStream when one is set.
func (c *Client) Open(ctx context.Context, method, rawURL string, headers map[string]string, opts *Options, iofunc func(io.Reader) error) (*Response, error) {
	pr, pw := io.Pipe()
	merged := Options{}
	if opts != nil {
		merged = *opts
	}
	merged.ResponseStream = pw

	done := make(chan error, 1)
	go func() {
		err := iofunc(pr)
		pr.CloseWithError(err)
		done <- err
	}()

	resp, doErr := c.Do(ctx, method, rawURL, headers, nil, &merged)
	_ = pw.Close()
	if cbErr := <-done; cbErr != nil && doErr == nil {
		return resp, cbErr
	}
	return resp, doErr
}

// CloseIdleConnections closes every idle pooled connection.
func (c *Client) CloseIdleConnections() { c.pool.CloseIdle() }

// Close stops the pool's sweeper and closes idle connections; use for
// test teardown or process shutdown.
func (c *Client) Close() { c.pool.Close() }

// Stats exposes pool occupancy for diagnostics.
func (c *Client) Stats() pool.Stats { return c.pool.Stats() }

var (
	defaultClientMu sync.Mutex
	defaultClient    *Client
)

// Default returns the lazily-initialized, process-wide default Client. A
// default pool and cookie jar exist as process-wide singletons so
// package-level Do can work without an explicit Client.
func Default() *Client {
	defaultClientMu.Lock()
	defer defaultClientMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(DefaultOptions())
		defaultClient.jar = NewJar()
	}
	return defaultClient
}

// CloseAll tears down the default Client, if one was ever created, and
// clears it so the next call to Default rebuilds it fresh. Intended for
// test teardown between cases that each want their own pool.
func CloseAll() {
	defaultClientMu.Lock()
	defer defaultClientMu.Unlock()
	if defaultClient != nil {
		defaultClient.Close()
		defaultClient = nil
	}
}

// Do sends a request through the default Client.
func Do(ctx context.Context, method, rawURL string, headers map[string]string, body any, opts *Options) (*Response, error) {
	return Default().Do(ctx, method, rawURL, headers, body, opts)
}
