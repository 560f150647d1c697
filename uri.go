package httpreq

import (
	"net/url"
	"strconv"
	"strings"
)

// URI is the engine's own view of a request target: scheme, userinfo,
// host, port (defaulting by scheme), path, query, fragment. It wraps
// net/url (the external URI-parsing collaborator) rather
// than re-implementing RFC 3986.
type URI struct {
	Scheme   string
	User     string // "user:pass", empty if absent
	Host     string
	Port     string // always set; defaults applied by scheme
	Path     string
	RawQuery string
	Fragment string
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https", "wss":
		return "443"
	default:
		return "80"
	}
}

// ParseURI parses s into a URI, applying the scheme's default port when
// none is given.
func ParseURI(s string) (*URI, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, &ArgumentError{Field: "url", Msg: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &ArgumentError{Field: "url", Msg: "missing scheme or host: " + s}
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}

	var user string
	if u.User != nil {
		user = u.User.String()
	}

	return &URI{
		Scheme:   strings.ToLower(u.Scheme),
		User:     user,
		Host:     host,
		Port:     port,
		Path:     u.EscapedPath(),
		RawQuery: u.RawQuery,
		Fragment: u.Fragment,
	}, nil
}

// Origin is the (scheme, host, port) triple used as the connection pool
// key and for same-origin comparisons (redirect auth/cookie stripping).
func (u *URI) Origin() string {
	return u.Scheme + "://" + u.Host + ":" + u.Port
}

// SameOrigin reports whether u and other share scheme, host and port.
func (u *URI) SameOrigin(other *URI) bool {
	return u.Scheme == other.Scheme && u.Host == other.Host && u.Port == other.Port
}

// RequestTarget returns the origin-form "path?query" used on the
// request line for a direct (non-proxied) connection.
func (u *URI) RequestTarget() string {
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}

// HostHeader returns the value to send as the Host header: host, or
// host:port when the port is non-default for the scheme.
func (u *URI) HostHeader() string {
	if u.Port == defaultPort(u.Scheme) {
		return u.Host
	}
	return u.Host + ":" + u.Port
}

// WithoutUserInfo returns a copy of u with User cleared, used once the
// BasicAuth layer has consumed the userinfo into an Authorization header.
func (u *URI) WithoutUserInfo() *URI {
	cp := *u
	cp.User = ""
	return &cp
}

// Resolve resolves a (possibly relative) Location header value against
// u, mirroring net/url.URL.ResolveReference (the external URI-join
// collaborator).
func (u *URI) Resolve(location string) (*URI, error) {
	base, err := url.Parse(u.String())
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return nil, &ArgumentError{Field: "Location", Msg: err.Error()}
	}
	return ParseURI(base.ResolveReference(ref).String())
}

// String renders the absolute-form URI.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != "" {
		b.WriteString(u.User)
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if u.Port != defaultPort(u.Scheme) {
		b.WriteByte(':')
		b.WriteString(u.Port)
	}
	b.WriteString(u.Path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// portNumber returns Port as an integer, or 0 if it isn't numeric.
func (u *URI) portNumber() int {
	n, err := strconv.Atoi(u.Port)
	if err != nil {
		return 0
	}
	return n
}
