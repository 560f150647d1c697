package pool

import (
	"context"
	"net"
	"time"

	utls "github.com/refraction-networking/utls"
)

// Dialer builds the pool's DialFunc: plain TCP for http, or a TLS
// connection pinned to ALPN http/1.1 for https. It uses
// refraction-networking/utls rather than crypto/tls directly so the
// same dependency that fingerprints TLS client hellos for HTTP/2
// negotiation elsewhere can also do a plain ALPN-pinned handshake here.
type Dialer struct {
	NetDialer  *net.Dialer
	VerifyTLS  bool
	ProxyDial  func(ctx context.Context, key Key) (net.Conn, error) // optional, CONNECT-tunneled
}

// NewDialer returns a Dialer with the given connect timeout and TLS
// verification policy.
func NewDialer(connectTimeout time.Duration, verifyTLS bool) *Dialer {
	return &Dialer{
		NetDialer: &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second},
		VerifyTLS: verifyTLS,
	}
}

// Dial implements DialFunc.
func (d *Dialer) Dial(ctx context.Context, key Key) (net.Conn, error) {
	var (
		nc  net.Conn
		err error
	)
	if d.ProxyDial != nil {
		nc, err = d.ProxyDial(ctx, key)
	} else {
		nc, err = d.NetDialer.DialContext(ctx, "tcp", net.JoinHostPort(key.Host, key.Port))
	}
	if err != nil {
		return nil, err
	}

	if key.Scheme != "https" {
		return nc, nil
	}

	uconn := utls.UClient(nc, &utls.Config{
		ServerName:         key.Host,
		InsecureSkipVerify: !d.VerifyTLS,
		NextProtos:         []string{"http/1.1"},
	}, utls.HelloGolang)

	if err := uconn.HandshakeContext(ctx); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return uconn, nil
}
