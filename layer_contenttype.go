package httpreq

import "net/http"

// contentTypeDetectionLayer sniffs a buffered body's first bytes and
// sets Content-Type when the caller hasn't already supplied one. A
// streaming body of unknown size can't be sniffed without consuming it,
// so it is left untouched.
func contentTypeDetectionLayer(c *call, next Next) (*Response, error) {
	if !c.header.Has("Content-Type") && c.body.IsBuffered() && c.body.Size() > 0 {
		sample := make([]byte, 0, 512)
		r := c.body.Reader()
		buf := make([]byte, 512)
		n, _ := r.Read(buf)
		sample = append(sample, buf[:n]...)

		c.header = c.header.Clone()
		c.header.Set("Content-Type", http.DetectContentType(sample))
	}
	return next(c)
}
