package httpreq

// cookieLayer attaches matching cookies from opts.Jar before descending,
// and records any Set-Cookie lines from the response into the jar.
func cookieLayer(c *call, next Next) (*Response, error) {
	jar := c.opts.Jar
	if jar == nil {
		return next(c)
	}

	if cookies := jar.CookiesFor(c.uri); cookies != "" {
		c.header = c.header.Clone()
		c.header.SetIfAbsent("Cookie", cookies)
	}

	resp, err := next(c)
	if err != nil {
		return nil, err
	}

	if setCookies := resp.Header.Values("Set-Cookie"); len(setCookies) > 0 {
		jar.SetCookies(c.uri, setCookies)
	}
	return resp, nil
}
