package httpreq

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is a single ordered name/value pair, as received or as sent on
// the wire. Unlike net/http.Header (a map), HeaderList preserves
// duplicate occurrences and their original order.
type Header struct {
	Name  string
	Value string
}

// HeaderList is an ordered sequence of header fields.
type HeaderList []Header

// Get returns the first value for name (case-insensitive), or "".
func (h HeaderList) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns all values for name, in order, case-insensitive match.
func (h HeaderList) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Has reports whether name appears at all.
func (h HeaderList) Has(name string) bool { return h.indexOf(name) >= 0 }

func (h HeaderList) indexOf(name string) int {
	for i, f := range h {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Set replaces all occurrences of name with a single field.
func (h *HeaderList) Set(name, value string) {
	h.Del(name)
	*h = append(*h, Header{Name: name, Value: value})
}

// Add appends a new occurrence of name without removing existing ones.
func (h *HeaderList) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Del removes every occurrence of name.
func (h *HeaderList) Del(name string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

// SetIfAbsent sets name=value only when name is not already present.
func (h *HeaderList) SetIfAbsent(name, value string) {
	if h.Has(name) {
		return
	}
	h.Add(name, value)
}

// Clone returns an independent copy.
func (h HeaderList) Clone() HeaderList {
	cp := make(HeaderList, len(h))
	copy(cp, h)
	return cp
}

// canonicalizeKey rewrites name to canonical MIME-header casing
// ("content-type" -> "Content-Type"), as the Canonicalize layer does
// for every outgoing header. Validation uses golang.org/x/net/http/httpguts
// for header-field validity checks.
func canonicalizeKey(name string) (string, bool) {
	if !httpguts.ValidHeaderFieldName(name) {
		return name, false
	}
	return httpCanonicalHeaderKey(name), true
}

// httpCanonicalHeaderKey reimplements textproto.CanonicalMIMEHeaderKey's
// casing rule locally: the first letter and every letter after a '-' are
// upper-cased, all other letters lower-cased.
func httpCanonicalHeaderKey(s string) string {
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		} else if !upper && 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(b)
}

// validHeaderValue reports whether v is wire-safe, per httpguts.
func validHeaderValue(v string) bool { return httpguts.ValidHeaderFieldValue(v) }
