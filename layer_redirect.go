package httpreq

var redirectStatuses = map[int]bool{301: true, 302: true, 303: true, 307: true, 308: true}

// redirectLayer follows 3xx Location responses up to opts.RedirectLimit,
// resolving each Location against the current URI, stripping
// Authorization and Cookie on a cross-origin hop (unless
// opts.ForwardHeaders opts back into the legacy, less safe behavior),
// and rewriting the method/body for 303 (always GET) and legacy
// 301/302-on-POST (GET, the behavior browsers and curl both converged
// on despite neither RFC 7231 nor 7238 mandating it). 307/308 always
// preserve method and body.
func redirectLayer(c *call, next Next) (*Response, error) {
	var history []*Response

	for {
		resp, err := next(c)
		if err != nil {
			return nil, err
		}

		if !redirectStatuses[resp.Status] {
			if len(history) > 0 {
				resp.history = history
			}
			return resp, nil
		}

		location := resp.Header.Get("Location")
		if location == "" {
			if len(history) > 0 {
				resp.history = history
			}
			return resp, nil
		}

		if c.redirectCount >= c.opts.RedirectLimit {
			return nil, &TooManyRedirects{Limit: c.opts.RedirectLimit}
		}

		dest, err := c.uri.Resolve(location)
		if err != nil {
			return nil, err
		}

		history = append(history, resp)
		c.redirectCount++

		crossOrigin := !c.uri.SameOrigin(dest)
		newHeader := c.header.Clone()
		if crossOrigin {
			// Host names the previous origin; Message fills it in again.
			newHeader.Del("Host")
		}
		if crossOrigin && !c.opts.ForwardHeaders {
			newHeader.Del("Authorization")
			newHeader.Del("Cookie")
		}

		switch resp.Status {
		case 303:
			c.method = "GET"
			c.body = NoBody
			newHeader.Del("Content-Length")
			newHeader.Del("Transfer-Encoding")
		case 301, 302:
			if c.method == "POST" {
				c.method = "GET"
				c.body = NoBody
				newHeader.Del("Content-Length")
				newHeader.Del("Transfer-Encoding")
			}
		}

		c.uri = dest
		c.header = newHeader
	}
}
