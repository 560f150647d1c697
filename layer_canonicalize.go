package httpreq

// canonicalizeLayer rewrites every outgoing header name to canonical
// MIME casing ("content-type" -> "Content-Type"). Names that fail
// validation are passed through unchanged rather than dropped, since
// rejecting the whole request for one bad header is the Message layer's
// call, not this one's.
func canonicalizeLayer(c *call, next Next) (*Response, error) {
	out := make(HeaderList, len(c.header))
	for i, f := range c.header {
		name, ok := canonicalizeKey(f.Name)
		if !ok {
			name = f.Name
		}
		out[i] = Header{Name: name, Value: f.Value}
	}
	c.header = out
	return next(c)
}
