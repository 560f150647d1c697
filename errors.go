package httpreq

import (
	"errors"
	"fmt"
)

// IOError wraps a transport-level failure: DNS, connect, TLS, reset,
// EOF-before-response, timeout. It is recoverable by the Retry layer.
type IOError struct {
	Op    string // e.g. "connect", "read", "write", "proxy dial", "proxy CONNECT"
	Cause error
}

func (e *IOError) Error() string { return fmt.Sprintf("httpreq: io error during %s: %v", e.Op, e.Cause) }
func (e *IOError) Unwrap() error { return e.Cause }

// IOErrorTimeout is the sentinel cause used for IOError when a deadline fires.
var IOErrorTimeout = errors.New("timeout")

func newTimeoutError(op string) *IOError { return &IOError{Op: op, Cause: IOErrorTimeout} }

// ParsingError reports malformed HTTP/1.1 wire bytes. Never recoverable.
type ParsingError struct {
	Kind string // e.g. "status-line", "header", "proxy CONNECT status line"
	At   string // the offending fragment, truncated
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("httpreq: parsing error (%s) at %q", e.Kind, e.At)
}

// StatusError is raised by the Exception layer when status_exception is
// enabled and the response status is >= 400. Recoverable by Retry for
// {403, 408, >=500}.
type StatusError struct {
	Status   int
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpreq: server responded with status %d", e.Status)
}

// Recoverable reports whether this status is one the Retry layer will
// re-attempt (subject to idempotency and body-replay guards).
func (e *StatusError) Recoverable() bool {
	return e.Status == 403 || e.Status == 408 || e.Status >= 500
}

// TooManyRedirects is fatal: the redirect limit was exceeded.
type TooManyRedirects struct {
	Limit   int
	History []*Request
}

func (e *TooManyRedirects) Error() string {
	return fmt.Sprintf("httpreq: stopped after %d redirects", e.Limit)
}

// ArgumentError reports invalid caller input, raised before any I/O.
type ArgumentError struct {
	Field string
	Msg   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("httpreq: invalid argument %s: %s", e.Field, e.Msg)
}

// RetryError wraps the final error of an exhausted retry sequence,
// joining the prior attempts' errors as nested causes.
type RetryError struct {
	Attempts int
	Last     error
	Prior    []error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("httpreq: giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() error { return e.Last }

// isRecoverable classifies err for the Retry layer: any IOError is
// recoverable; a StatusError is recoverable when its status is >=500 or
// appears in codes (the caller additionally gates on idempotency and
// body-replay safety). A nil codes list falls back to StatusError's own
// default classification (403, 408, >=500).
func isRecoverable(err error, codes []int) bool {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if codes == nil {
			return statusErr.Recoverable()
		}
		if statusErr.Status >= 500 {
			return true
		}
		for _, c := range codes {
			if c == statusErr.Status {
				return true
			}
		}
		return false
	}
	return false
}
