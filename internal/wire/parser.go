// Package wire drives the HTTP/1.1 request/response exchange over a
// single connection: request-line/header rendering, the concurrent
// writer/reader state machine, and chunked/content-length body framing.
// Status-line and header parsing lean on net/textproto; chunked
// transfer-coding itself is delegated to net/http/httputil rather than
// reimplemented here.
package wire

import (
	"bufio"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
)

// StatusLine is the parsed "HTTP/M.N status reason" line.
type StatusLine struct {
	Major, Minor int
	Status       int
	Reason       string
}

// HeaderField is one ordered name/value pair as seen on the wire.
type HeaderField struct {
	Name, Value string
}

// Parser reads one HTTP/1.1 response off r. A Parser is single-use: it
// owns the buffered reader's position and must not be shared.
type Parser struct {
	tp *textproto.Reader
}

// NewParser wraps the buffered reader r as an incremental HTTP/1.1
// response reader.
func NewParser(r *bufio.Reader) *Parser {
	return &Parser{tp: textproto.NewReader(r)}
}

// ReadStatusLine consumes one "HTTP/M.N status reason" line.
func (p *Parser) ReadStatusLine() (StatusLine, error) {
	line, err := p.tp.ReadLine()
	if err != nil {
		return StatusLine{}, err
	}
	return parseStatusLine(line)
}

func parseStatusLine(line string) (StatusLine, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok {
		return StatusLine{}, &ParsingError{Kind: "status-line", At: line}
	}
	major, minor, ok := parseHTTPVersion(proto)
	if !ok {
		return StatusLine{}, &ParsingError{Kind: "status-line", At: line}
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	status, err := strconv.Atoi(codeStr)
	if err != nil || status < 100 || status > 599 {
		return StatusLine{}, &ParsingError{Kind: "status-line", At: line}
	}
	return StatusLine{Major: major, Minor: minor, Status: status, Reason: reason}, nil
}

func parseHTTPVersion(proto string) (major, minor int, ok bool) {
	if !strings.HasPrefix(proto, "HTTP/") {
		return 0, 0, false
	}
	maj, min, found := strings.Cut(strings.TrimPrefix(proto, "HTTP/"), ".")
	if !found {
		return 0, 0, false
	}
	majN, err1 := strconv.Atoi(maj)
	minN, err2 := strconv.Atoi(min)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return majN, minN, true
}

// ReadHeaders consumes the header block up to and including the
// terminating blank line, preserving field order. net/textproto's
// MIMEHeader is a map and would lose both the order of distinct header
// names and the relative order of repeated ones, so this reads the
// block line-by-line instead.
func (p *Parser) ReadHeaders() ([]HeaderField, error) {
	var fields []HeaderField
	for {
		line, err := p.tp.ReadLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			return fields, nil
		}
		if len(fields) > 0 && (line[0] == ' ' || line[0] == '\t') {
			// obsolete header-value line folding: append to the previous value.
			last := &fields[len(fields)-1]
			last.Value += " " + strings.TrimSpace(line)
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ParsingError{Kind: "header", At: line}
		}
		fields = append(fields, HeaderField{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
}

// Reader exposes the buffered reader so the caller can switch to
// content-length or chunked body framing once headers are parsed.
func (p *Parser) Reader() *bufio.Reader { return p.tp.R }

// ParsingError mirrors the root package's error (duplicated here to
// avoid an import cycle; layer_stream.go translates it back).
type ParsingError struct {
	Kind string
	At   string
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("wire: parsing error (%s) at %q", e.Kind, e.At)
}
