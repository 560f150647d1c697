package httpreq

import (
	"strconv"
	"strings"
)

// messageLayer is the boundary where the raw (method, URI, header, body)
// tuple becomes a typed Request linked to an empty Response: it fills in
// Host, User-Agent, Accept, and body-framing headers the caller left
// unset, then hands a *Request/*Response pair to every layer below it.
func messageLayer(c *call, next Next) (*Response, error) {
	header := c.header.Clone()

	header.SetIfAbsent("Host", c.uri.HostHeader())
	header.SetIfAbsent("User-Agent", "httpreq/1.0")
	header.SetIfAbsent("Accept", "*/*")

	if !header.Has("Content-Length") && !header.Has("Transfer-Encoding") {
		if c.body.IsKnownLength() {
			if c.body.Size() > 0 || c.method == "POST" || c.method == "PUT" || c.method == "PATCH" {
				header.Set("Content-Length", strconv.FormatInt(c.body.Size(), 10))
			}
		} else {
			header.Set("Transfer-Encoding", "chunked")
		}
	}

	c.expectContinue = strings.EqualFold(header.Get("Expect"), "100-continue")

	req := newRequest(c.method, c.uri, header, c.body)
	req.Parent = c.req
	req.proxied = len(c.client.defaults.Proxies) > 0 && c.uri.Scheme != "https"
	resp := newResponse(req)

	c.req = req
	c.resp = resp
	c.header = header

	return next(c)
}
