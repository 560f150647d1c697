package httpreq

import "encoding/base64"

// basicAuthLayer sets an Authorization: Basic header from the target
// URI's userinfo, if present and no Authorization header is already set.
func basicAuthLayer(c *call, next Next) (*Response, error) {
	if c.uri.User != "" && !c.header.Has("Authorization") {
		token := base64.StdEncoding.EncodeToString([]byte(c.uri.User))
		c.header = c.header.Clone()
		c.header.Set("Authorization", "Basic "+token)
		c.uri = c.uri.WithoutUserInfo()
	}
	return next(c)
}
