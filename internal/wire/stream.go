package wire

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http/httputil"
	"strconv"
	"strings"
	"time"
)

// Transaction is the bidirectional byte stream a Stream drives: a
// scoped lease on a pooled connection for exactly one exchange.
// Deadlines, half-close and forced-close are all optional capabilities
// detected via interface assertion, so a plain net.Pipe can stand in
// for tests that don't need them.
type Transaction interface {
	io.Reader
	io.Writer
}

type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

type halfCloser interface {
	CloseWrite() error
}

type forceCloser interface {
	Close() error
}

// Exchange is everything the Stream needs to drive one request/response
// round trip over a Transaction.
type Exchange struct {
	Tx Transaction

	// Head is the fully rendered request line + headers + blank line.
	Head []byte

	// Body, when non-nil, is copied to the wire after Head. Chunked
	// selects Transfer-Encoding: chunked framing (unknown length);
	// otherwise the caller must have already set a correct
	// Content-Length in Head.
	Body    io.Reader
	Chunked bool

	// ExpectContinue pauses body transmission until a 100 response
	// arrives or ExpectTimeout elapses.
	ExpectContinue bool
	ExpectTimeout  time.Duration

	// HeadMethod suppresses response-body framing for HEAD requests.
	HeadMethod bool

	// MaxResponseBody caps buffered response bytes (0 = unlimited).
	MaxResponseBody int64

	// ResponseSink, when set, receives response body bytes as they
	// arrive instead of having them buffered into Result.Body.
	ResponseSink io.Writer
}

// Result is what the reader task produced.
type Result struct {
	Status    StatusLine
	Headers   []HeaderField
	Body      []byte
	BodyBytes int64
	// KeepAlive reports whether the connection is still usable for
	// another request once this exchange is done.
	KeepAlive bool
}

// bodyFraming classifies how the response body is delimited.
type bodyFraming int

const (
	framingNone bodyFraming = iota
	framingContentLength
	framingChunked
	framingClose
)

// Run drives one request/response exchange: write the request head,
// then concurrently write the body and read the response, overlapping
// upload and download so an early error response can arrive before the
// upload finishes (RFC 7230 §6.5).
func Run(ctx context.Context, ex Exchange) (*Result, error) {
	if cc, ok := ex.Tx.(forceCloser); ok {
		stop := context.AfterFunc(ctx, func() { _ = cc.Close() })
		defer stop()
	}

	if _, err := ex.Tx.Write(ex.Head); err != nil {
		return nil, &IOError{Op: "write", Cause: err}
	}

	br := bufio.NewReader(ex.Tx)
	parser := NewParser(br)

	writerStart := make(chan bool, 1)
	writerDone := make(chan error, 1)

	go func() {
		writerDone <- runWriter(ex, writerStart)
	}()

	var preread *StatusLine
	if ex.ExpectContinue && ex.Body != nil {
		sl, err := awaitContinue(ex.Tx, parser, ex.ExpectTimeout)
		switch {
		case err != nil:
			writerStart <- true // deadline elapsed or read error: send the body anyway
		case sl.Status == 100:
			// discard the (normally empty) 100-continue header block.
			if _, hErr := parser.ReadHeaders(); hErr != nil {
				return nil, wrapReadErr(hErr)
			}
			writerStart <- true
		default:
			// server answered without waiting for the body; don't send it.
			writerStart <- false
			preread = &sl
		}
	} else {
		writerStart <- true
	}

	var status StatusLine
	var err error
	if preread != nil {
		status = *preread
	} else {
		status, err = readFinalStatus(parser)
		if err != nil {
			return nil, wrapReadErr(err)
		}
	}

	headers, err := parser.ReadHeaders()
	if err != nil {
		return nil, wrapReadErr(err)
	}

	framing, length := classifyFraming(headers, status.Status, ex.HeadMethod)

	var bodyBuf []byte
	var bodyBytes int64
	closeDelimited := framing == framingClose
	if framing != framingNone {
		bodyBytes, bodyBuf, err = readBody(br, framing, length, ex.MaxResponseBody, ex.ResponseSink)
		if err != nil {
			return nil, wrapReadErr(err)
		}
	}

	werr := <-writerDone
	finalNon2xx := status.Status < 200 || status.Status >= 300
	if werr != nil && !finalNon2xx {
		return nil, &IOError{Op: "write", Cause: werr}
	}

	keepAlive := !closeDelimited && connectionKeepAlive(headers, status.Major, status.Minor) && werr == nil

	return &Result{
		Status:    status,
		Headers:   headers,
		Body:      bodyBuf,
		BodyBytes: bodyBytes,
		KeepAlive: keepAlive,
	}, nil
}

// wrapReadErr classifies a reader-stage failure: a ParsingError (bad
// status line or header) is never a transport problem and must surface
// as-is so callers don't treat malformed wire bytes as retryable;
// anything else becomes an IOError. Malformed chunked framing is
// reported by net/http/httputil as a plain error, so it is not
// recognised as a ParsingError and ends up as an IOError.
func wrapReadErr(err error) error {
	var parseErr *ParsingError
	if errors.As(err, &parseErr) {
		return parseErr
	}
	return &IOError{Op: "read", Cause: err}
}

// runWriter is the writer task of a Stream: it waits to be told whether
// to send the body at all (Expect: 100-continue gate), then streams
// it, chunked or not, and half-closes the write side on success.
func runWriter(ex Exchange, start <-chan bool) error {
	send := <-start
	if send && ex.Body != nil {
		var w io.Writer = ex.Tx
		var chunked io.WriteCloser
		if ex.Chunked {
			chunked = httputil.NewChunkedWriter(ex.Tx)
			w = chunked
		}
		if _, err := io.Copy(w, ex.Body); err != nil {
			return err
		}
		if chunked != nil {
			if err := chunked.Close(); err != nil {
				return err
			}
		}
	}
	if hc, ok := ex.Tx.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
	return nil
}

// awaitContinue tries to read a single status line within timeout,
// temporarily installing a read deadline if the Transaction supports one.
func awaitContinue(tx Transaction, parser *Parser, timeout time.Duration) (StatusLine, error) {
	if d, ok := tx.(deadliner); ok && timeout > 0 {
		_ = d.SetReadDeadline(time.Now().Add(timeout))
		defer d.SetReadDeadline(time.Time{})
	}
	return parser.ReadStatusLine()
}

// readFinalStatus skips any 1xx informational responses (100-continue
// the caller didn't explicitly wait for, 103 Early Hints, ...).
func readFinalStatus(parser *Parser) (StatusLine, error) {
	for {
		sl, err := parser.ReadStatusLine()
		if err != nil {
			return StatusLine{}, err
		}
		if sl.Status/100 != 1 {
			return sl, nil
		}
		if _, err := parser.ReadHeaders(); err != nil {
			return StatusLine{}, err
		}
	}
}

func classifyFraming(headers []HeaderField, status int, headMethod bool) (bodyFraming, int64) {
	if headMethod || status == 204 || status == 304 || (status >= 100 && status < 200) {
		return framingNone, 0
	}
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Transfer-Encoding") && strings.Contains(strings.ToLower(h.Value), "chunked") {
			return framingChunked, 0
		}
	}
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Content-Length") {
			n, err := parseContentLength(h.Value)
			if err == nil {
				return framingContentLength, n
			}
		}
	}
	return framingClose, 0
}

func parseContentLength(v string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}

func readBody(r io.Reader, framing bodyFraming, length, max int64, sink io.Writer) (int64, []byte, error) {
	switch framing {
	case framingChunked:
		r = httputil.NewChunkedReader(r)
	case framingContentLength:
		r = io.LimitReader(r, length)
	case framingClose:
		// read until EOF; still respect max as a safety cap.
	}
	if max > 0 {
		r = io.LimitReader(r, max)
	}
	if sink != nil {
		n, err := io.Copy(sink, r)
		return n, nil, err
	}
	buf, err := io.ReadAll(r)
	return int64(len(buf)), buf, err
}

// connectionKeepAlive implements the HTTP/1.0 vs HTTP/1.1 default plus
// an explicit Connection header override.
func connectionKeepAlive(headers []HeaderField, major, minor int) bool {
	var connectionValues []string
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Connection") {
			connectionValues = append(connectionValues, strings.ToLower(h.Value))
		}
	}
	hasToken := func(tok string) bool {
		for _, v := range connectionValues {
			for _, part := range strings.Split(v, ",") {
				if strings.TrimSpace(part) == tok {
					return true
				}
			}
		}
		return false
	}
	if hasToken("close") {
		return false
	}
	if major == 1 && minor == 0 {
		return hasToken("keep-alive")
	}
	return true
}

// IOError mirrors the root package's transport-error type (duplicated
// to avoid an import cycle; layer_stream.go translates it back).
type IOError struct {
	Op    string
	Cause error
}

func (e *IOError) Error() string { return "wire: io error during " + e.Op + ": " + e.Cause.Error() }
func (e *IOError) Unwrap() error { return e.Cause }
