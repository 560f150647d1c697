package httpreq

import (
	"context"

	"github.com/shiroyk/ski-ext/httpreq/internal/pool"
	"github.com/shiroyk/ski-ext/httpreq/internal/wire"
)

// call is the mutable, per-invocation state threaded through the layer
// stack. Above the Message layer it carries a raw (URI, headers, body)
// tuple; Message promotes that into a typed Request/Response pair that
// every layer below shares.
type call struct {
	ctx context.Context

	method string
	uri    *URI
	header HeaderList
	body   Body

	opts   *Options
	client *Client

	req  *Request
	resp *Response

	redirectCount  int
	expectContinue bool

	// conn is the transport connection acquired by the ConnectionPool
	// layer, which also releases it once Stream is done with it.
	conn      *pool.Conn
	keepAlive bool

	// tx is the Transaction Stream actually drives: connectionPoolLayer
	// seeds it with conn, and Debug/Timeout may each wrap it (byte
	// teeing, idle-read-deadline re-arming) before Stream sees it.
	tx wire.Transaction
}

// Next is the tail of the stack a Layer invokes to continue the descent.
type Next func(c *call) (*Response, error)

// Layer transforms c and/or the Response next() returns.
type Layer func(c *call, next Next) (*Response, error)

// Stack is an assembled, ordered sequence of Layers: a runtime slice of
// layer closures built fresh per call rather than a fixed, nested type.
type Stack struct {
	layers []Layer
}

// NewStack builds the layer stack for opts, including only the layers
// opts enables, in a fixed order. Unused layers are omitted entirely so
// a disabled feature costs nothing at call time.
func NewStack(opts *Options, client *Client) *Stack {
	s := &Stack{}

	if opts.redirectEnabled() {
		s.layers = append(s.layers, redirectLayer)
	}
	if opts.BasicAuthorization {
		s.layers = append(s.layers, basicAuthLayer)
	}
	if opts.DetectContentType {
		s.layers = append(s.layers, contentTypeDetectionLayer)
	}
	if opts.Cookies {
		s.layers = append(s.layers, cookieLayer)
	}
	if opts.CanonicalizeHeaders {
		s.layers = append(s.layers, canonicalizeLayer)
	}
	s.layers = append(s.layers, messageLayer)
	if opts.AWSAuthorization {
		s.layers = append(s.layers, awsSigV4Layer)
	}
	if opts.retryEnabled() {
		s.layers = append(s.layers, retryLayer)
	}
	if opts.statusExceptionEnabled() {
		s.layers = append(s.layers, exceptionLayer)
	}
	s.layers = append(s.layers, connectionPoolLayer(client))
	if opts.Verbose > 0 {
		s.layers = append(s.layers, debugLayer)
	}
	s.layers = append(s.layers, timeoutLayer)
	s.layers = append(s.layers, streamLayer)

	return s
}

// run executes the stack against c, composing layers into a single
// Next chain with the last layer's next being a terminal that panics if
// ever reached (the Stream layer is always present and never calls next).
func (s *Stack) run(c *call) (*Response, error) {
	var chain Next = func(c *call) (*Response, error) {
		panic("httpreq: layer stack exhausted without reaching Stream")
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		layer := s.layers[i]
		next := chain
		chain = func(c *call) (*Response, error) { return layer(c, next) }
	}
	return chain(c)
}
