package httpreq

// exceptionLayer converts a >=400 response into a *StatusError so the
// Retry layer above it (and the caller) can classify the failure,
// instead of silently returning an error-status Response.
func exceptionLayer(c *call, next Next) (*Response, error) {
	resp, err := next(c)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return resp, &StatusError{Status: resp.Status, Response: resp}
	}
	return resp, nil
}
