package httpreq

// Response is the engine's typed response: status, reason phrase,
// version, ordered headers, body, and a back-reference to the Request
// that produced it.
type Response struct {
	Status  int
	Reason  string
	Major   int
	Minor   int
	Header  HeaderList
	Body    Body
	Req     *Request
	history []*Response // prior responses in a redirect chain, oldest first
}

// reset restores a Response to its empty state between retry attempts:
// status zeroed, headers cleared, body cleared.
func (r *Response) reset() {
	r.Status = 0
	r.Reason = ""
	r.Header = nil
	r.Body = Body{}
}

// IsError reports whether Status is an application-error status (>=400).
func (r *Response) IsError() bool { return r.Status >= 400 }

// History returns prior responses in a redirect chain, oldest first.
func (r *Response) History() []*Response { return r.history }

// newResponse returns an empty Response already linked to req, as the
// Message layer does when it builds the Request.
func newResponse(req *Request) *Response {
	resp := &Response{Req: req}
	req.Resp = resp
	return resp
}
