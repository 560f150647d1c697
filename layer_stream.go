package httpreq

import (
	"errors"
	"io"
	"strings"

	"github.com/shiroyk/ski-ext/httpreq/internal/wire"
)

// streamLayer drives the actual wire exchange over c.conn: it renders
// the request head, writes and reads the body concurrently, and fills
// in c.resp. It is always the innermost layer and never calls next.
func streamLayer(c *call, _ Next) (*Response, error) {
	head := renderHead(c.req)
	chunked := strings.EqualFold(c.req.Header.Get("Transfer-Encoding"), "chunked")

	var bodyReader io.Reader
	if c.req.Body.Size() != 0 || chunked {
		bodyReader = c.req.Body.Reader()
	}

	result, err := wire.Run(c.ctx, wire.Exchange{
		Tx:             c.tx,
		Head:           head,
		Body:           bodyReader,
		Chunked:        chunked,
		ExpectContinue: c.expectContinue,
		ExpectTimeout:  c.opts.ExpectContinueTimeout,
		HeadMethod:     c.method == "HEAD",
		ResponseSink:   c.opts.ResponseStream,
	})
	if err != nil {
		return nil, translateWireErr(err)
	}

	c.keepAlive = result.KeepAlive

	c.resp.Status = result.Status.Status
	c.resp.Reason = result.Status.Reason
	c.resp.Major = result.Status.Major
	c.resp.Minor = result.Status.Minor

	var hl HeaderList
	for _, h := range result.Headers {
		hl.Add(h.Name, h.Value)
	}
	c.resp.Header = hl
	if c.opts.ResponseStream == nil {
		c.resp.Body = BufferBody(result.Body)
	}

	return c.resp, nil
}

// renderHead renders the request line and headers as wire bytes,
// terminated by the blank line that separates head from body.
func renderHead(req *Request) []byte {
	var b strings.Builder
	b.WriteString(req.RequestLine())
	b.WriteString("\r\n")
	for _, f := range req.Header {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// translateWireErr maps the wire package's duplicated error types back
// onto the root package's, preserving the ParsingError/IOError
// distinction the Retry layer's recoverability classification depends
// on: a ParsingError must never come back as an IOError.
func translateWireErr(err error) error {
	var parseErr *wire.ParsingError
	if errors.As(err, &parseErr) {
		return &ParsingError{Kind: parseErr.Kind, At: parseErr.At}
	}
	var ioErr *wire.IOError
	if errors.As(err, &ioErr) {
		return &IOError{Op: ioErr.Op, Cause: ioErr.Cause}
	}
	return err
}
