package httpreq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// Body is one of: an owned byte buffer, a streaming source of unknown
// (or known) length, or the "already streamed" sentinel once its bytes
// have been written to the wire. A streamed body cannot be
// replayed, which is what makes non-idempotent retries unsafe.
type Body struct {
	buf      []byte
	stream   io.Reader
	size     int64 // -1 if unknown (chunked framing required)
	streamed bool
}

// NoBody is an empty body.
var NoBody = Body{size: 0}

// BufferBody returns a Body owning b. Its size is known, so the Message
// layer sets Content-Length and it is always replayable by Retry.
func BufferBody(b []byte) Body {
	return Body{buf: b, size: int64(len(b))}
}

// StreamBody returns a Body reading from r. If size < 0 the length is
// unknown and the Message layer must use chunked Transfer-Encoding.
// Once streamed, it cannot be replayed.
func StreamBody(r io.Reader, size int64) Body {
	return Body{stream: r, size: size}
}

// IsKnownLength reports whether Size() is meaningful.
func (b Body) IsKnownLength() bool { return b.stream == nil || b.size >= 0 }

// Size returns the body length, or -1 if unknown (streaming, unsized).
func (b Body) Size() int64 { return b.size }

// IsBuffered reports whether the body is an owned, replayable buffer.
func (b Body) IsBuffered() bool { return b.stream == nil }

// Streamed reports whether a streaming body has already been consumed
// onto the wire and can no longer be replayed.
func (b Body) Streamed() bool { return b.streamed }

// Reader returns a fresh io.Reader over the body's bytes. For a buffered
// body this can be called repeatedly (each call rewinds); for a
// streaming body it can be called exactly once and marks the body
// streamed thereafter.
func (b *Body) Reader() io.Reader {
	if b.stream != nil {
		b.streamed = true
		return b.stream
	}
	return bytes.NewReader(b.buf)
}

// CoerceBody converts a caller-supplied value into a Body, mirroring the
// NewRequest's body-coercion rules: struct/map/slice
// marshal to JSON and imply a Content-Type; io.Reader and fmt.Stringer
// pass through; string/[]byte are wrapped directly.
func CoerceBody(body any) (Body, string, error) {
	if body == nil {
		return NoBody, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		if known, ok := v.(interface{ Len() int }); ok {
			return StreamBody(v, int64(known.Len())), "", nil
		}
		return StreamBody(v, -1), "", nil
	case fmt.Stringer:
		return BufferBody([]byte(v.String())), "", nil
	case string:
		return BufferBody([]byte(v)), "", nil
	case []byte:
		return BufferBody(v), "", nil
	default:
		kind := reflect.ValueOf(body).Kind()
		if kind != reflect.Struct && kind != reflect.Map && kind != reflect.Array && kind != reflect.Slice {
			return NoBody, "", &ArgumentError{Field: "body", Msg: fmt.Sprintf("unsupported body type %T", body)}
		}
		j, err := json.Marshal(body)
		if err != nil {
			return NoBody, "", err
		}
		return BufferBody(j), "application/json", nil
	}
}
