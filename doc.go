// Package httpreq is a client-side HTTP/1.1 request execution engine.
//
// It accepts a method/URL/headers/body, runs the request through a
// configurable stack of layers (redirects, auth, cookies, retries,
// content negotiation), acquires a pooled connection (possibly TLS),
// streams the request and response bodies concurrently over that
// connection, and returns a fully formed Response or a classified error.
//
// The wire protocol (connection pooling, HTTP/1.1 framing, chunked
// transfer) is implemented by this module directly over net.Conn; it
// does not wrap net/http.Transport.
package httpreq
