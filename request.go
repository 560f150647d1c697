package httpreq

import (
	"bufio"
	"bytes"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
	"text/template"
)

// Request is the engine's typed request, built by the Message layer
// from a raw (method, URI, headers, body) tuple. Method, target, and
// version describe the request line; Header is ordered. Parent links to
// the request this one was redirected from; a retry re-sends the same
// Request.
type Request struct {
	Method  string
	Target  *URI
	Major   int
	Minor   int
	Header  HeaderList
	Body    Body
	Parent  *Request
	Resp    *Response
	proxied bool // target line must be absolute-form (through a proxy)
}

// idempotentMethods lists methods safe to repeat without server-visible side effects.
var idempotentMethods = map[string]bool{
	"GET": true, "HEAD": true, "PUT": true, "DELETE": true, "OPTIONS": true, "TRACE": true,
}

// Idempotent reports whether r.Method is safe to repeat without
// server-visible side effects.
func (r *Request) Idempotent() bool { return idempotentMethods[strings.ToUpper(r.Method)] }

// RequestLine renders "METHOD SP target SP HTTP/M.N".
func (r *Request) RequestLine() string {
	target := r.Target.RequestTarget()
	if r.proxied {
		target = r.Target.String()
	}
	return fmt.Sprintf("%s %s HTTP/%d.%d", r.Method, target, r.Major, r.Minor)
}

// newRequest builds the Request skeleton shared by the Message layer;
// version defaults to HTTP/1.1.
func newRequest(method string, target *URI, header HeaderList, body Body) *Request {
	return &Request{
		Method: strings.ToUpper(method),
		Target: target,
		Major:  1,
		Minor:  1,
		Header: header,
		Body:   body,
	}
}

// NewRequest builds a Request given a method, URL, optional body and
// optional headers. Body coercion rules are shared with CoerceBody.
func NewRequest(method, rawURL string, body any, headers map[string]string) (*Request, error) {
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

	return newRequest(method, target, hl, b), nil
}

// NewTemplateRequest renders tpl with arg and parses the result as a raw
// HTTP/1.1 request, used to build fixtures/golden requests from a template.
func NewTemplateRequest(tpl *template.Template, arg any) (*Request, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, arg); err != nil {
		return nil, err
	}
	// https://github.com/golang/go/issues/24963
	rendered := strings.ReplaceAll(buf.String(), "<no value>", "")
	return ReadRequest(rendered)
}

// ReadRequest parses a raw "METHOD target HTTP/M.N\r\nheaders\r\n\r\nbody"
// string into a Request, built on the public net/textproto API rather
// than net/http's unexported request-reading internals.
func ReadRequest(raw string) (*Request, error) {
	tp := textproto.NewReader(bufio.NewReader(strings.NewReader(raw)))

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}
	method, rawTarget, proto := parseRequestLine(line)

	major, minor, ok := parseHTTPVersion(proto)
	if !ok {
		return nil, &ParsingError{Kind: "status-line", At: proto}
	}

	target, err := ParseURI(normalizeRequestTarget(rawTarget))
	if err != nil {
		return nil, err
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && !isEOF(err) {
		return nil, err
	}

	var hl HeaderList
	for k, vs := range mimeHeader {
		for _, v := range vs {
			hl.Add(k, v)
		}
	}

	req := newRequest(method, target, hl, NoBody)
	req.Major, req.Minor = major, minor

	if method != "HEAD" && tp.R.Buffered() > 0 {
		var body bytes.Buffer
		if _, err := tp.R.WriteTo(&body); err != nil {
			return nil, err
		}
		if body.Len() > 0 {
			req.Body = BufferBody(body.Bytes())
		}
	}

	return req, nil
}

func isEOF(err error) bool { return err != nil && err.Error() == "EOF" }

// parseRequestLine parses "GET /foo HTTP/1.1" into its three parts,
// defaulting to GET/HTTP-1.1 when pieces are missing, same relaxed
// parsing golden-request fixtures built from incomplete templates.
func parseRequestLine(line string) (method, target, proto string) {
	method, rest, ok1 := strings.Cut(line, " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 {
		return "GET", line, "HTTP/1.1"
	}
	if !ok2 {
		return method, target, "HTTP/1.1"
	}
	return method, target, proto
}

func parseHTTPVersion(proto string) (major, minor int, ok bool) {
	var s string
	if !strings.HasPrefix(proto, "HTTP/") {
		return 0, 0, false
	}
	s = strings.TrimPrefix(proto, "HTTP/")
	maj, min, found := strings.Cut(s, ".")
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

// normalizeRequestTarget turns an origin-form path (no scheme/host) into
// something ParseURI accepts, by assuming http://local if absolute-form
// wasn't used. This only matters for ReadRequest's raw-template fixtures.
func normalizeRequestTarget(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "http://local" + raw
}
