package httpreq

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Options configures a single Do/Open call (or a Client's defaults).
// Field names mirror the engine's documented call-time knobs.
type Options struct {
	// Redirect, Retry, StatusException, and RequireSSLVerification
	// default to true; *bool (rather than bool) lets a caller explicitly
	// set them to false, which a plain bool can't distinguish from
	// "left unset" once fillDefaults runs.
	Redirect            *bool         `yaml:"redirect"`
	RedirectLimit       int           `yaml:"redirect-limit"`
	ForwardHeaders      bool          `yaml:"forward-headers"`
	BasicAuthorization  bool          `yaml:"basic-authorization"`
	AWSAuthorization    bool          `yaml:"aws-authorization"`
	AWSRegion           string        `yaml:"aws-region"`
	AWSService          string        `yaml:"aws-service"`
	Cookies             bool          `yaml:"cookies"`
	CanonicalizeHeaders bool          `yaml:"canonicalize-headers"`
	Retry               *bool         `yaml:"retry"`
	Retries             int           `yaml:"retries"`
	RetryNonIdempotent  bool          `yaml:"retry-non-idempotent"`
	RetryHTTPCodes      []int         `yaml:"retry-http-codes"`
	StatusException     *bool         `yaml:"status-exception"`
	ReadTimeout         time.Duration `yaml:"read-timeout"`
	ConnectTimeout      time.Duration `yaml:"connect-timeout"`
	ExpectContinueTimeout time.Duration `yaml:"expect-continue-timeout"`
	DetectContentType   bool          `yaml:"detect-content-type"`
	ResponseStream      io.Writer     `yaml:"-"`
	Verbose             int           `yaml:"verbose"`
	RequireSSLVerification *bool      `yaml:"require-ssl-verification"`

	// ConnectionLimitPerHost and ConnectionLimit bound the pool.
	ConnectionLimitPerHost int `yaml:"connection-limit-per-host"`
	ConnectionLimit        int `yaml:"connection-limit"`
	MaxRequestsPerConn     int `yaml:"max-requests-per-connection"`
	IdleTimeout            time.Duration `yaml:"idle-timeout"`

	Proxies []string `yaml:"proxies"`

	Jar    Jar         `yaml:"-"`
	Logger *slog.Logger `yaml:"-"`

	// DialFunc, when set, replaces the pool's default net.Dialer.DialContext.
	// Used by tests to point the engine at an in-memory listener.
	DialFunc DialFunc `yaml:"-"`
}

// Defaults applied by fillDefaults when a field is left unset.
const (
	DefaultRedirectLimit          = 3
	DefaultRetries                = 4
	DefaultConnectTimeout         = 10 * time.Second
	DefaultConnectionLimitPerHost = 8
	DefaultConnectionLimit        = 64
	DefaultMaxRequestsPerConn     = 1000
	DefaultIdleTimeout            = 30 * time.Second
	DefaultExpectContinueTimeout  = 1 * time.Second
)

// DefaultRetryHTTPCodes seeds the status codes Retry treats as
// recoverable: 403, 408, and the common 5xx codes (>=500 is always
// recoverable regardless of this list; see isRecoverable).
var DefaultRetryHTTPCodes = []int{403, 408, 500, 502, 503, 504}

// DefaultOptions returns an Options value with every default from
// every documented default applied.
func DefaultOptions() Options {
	o := Options{}
	o.fillDefaults()
	return o
}

func (o *Options) fillDefaults() {
	o.Redirect = boolPtrOr(o.Redirect, true)
	o.RedirectLimit = zeroOr(o.RedirectLimit, DefaultRedirectLimit)
	o.Retry = boolPtrOr(o.Retry, true)
	o.Retries = zeroOr(o.Retries, DefaultRetries)
	o.RetryHTTPCodes = emptyOr(o.RetryHTTPCodes, DefaultRetryHTTPCodes)
	o.StatusException = boolPtrOr(o.StatusException, true)
	o.ConnectTimeout = durationZeroOr(o.ConnectTimeout, DefaultConnectTimeout)
	o.ConnectionLimitPerHost = zeroOr(o.ConnectionLimitPerHost, DefaultConnectionLimitPerHost)
	o.ConnectionLimit = zeroOr(o.ConnectionLimit, DefaultConnectionLimit)
	o.MaxRequestsPerConn = zeroOr(o.MaxRequestsPerConn, DefaultMaxRequestsPerConn)
	o.IdleTimeout = durationZeroOr(o.IdleTimeout, DefaultIdleTimeout)
	o.ExpectContinueTimeout = durationZeroOr(o.ExpectContinueTimeout, DefaultExpectContinueTimeout)
	o.RequireSSLVerification = boolPtrOr(o.RequireSSLVerification, true)
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	// ReadTimeout intentionally left at its zero value (off) by default.
}

// redirectEnabled, retryEnabled, statusExceptionEnabled, and
// verifySSL read the *bool fields with their true default, for layer
// construction and dialing.
func (o *Options) redirectEnabled() bool        { return o.Redirect == nil || *o.Redirect }
func (o *Options) retryEnabled() bool           { return o.Retry == nil || *o.Retry }
func (o *Options) statusExceptionEnabled() bool { return o.StatusException == nil || *o.StatusException }
func (o *Options) verifySSL() bool              { return o.RequireSSLVerification == nil || *o.RequireSSLVerification }

func boolPtrOr(v *bool, def bool) *bool {
	if v != nil {
		return v
	}
	return &def
}

// zeroOr returns def when v is
// the zero value of its type.
func zeroOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func durationZeroOr(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

// emptyOr returns def when v is empty.
func emptyOr(v, def []int) []int {
	if len(v) == 0 {
		return def
	}
	return v
}

// LoadOptions decodes a YAML configuration document into Options,
// applying defaults to anything left unset. Loose scalar types (e.g. a
// YAML string for a duration field) are coerced with spf13/cast, so a
// duration can be written as "10s"; a bare number such as 10 is read as
// nanoseconds.
func LoadOptions(r io.Reader) (Options, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Options{}, err
	}

	o := Options{}
	if v, ok := raw["redirect"]; ok {
		b := cast.ToBool(v)
		o.Redirect = &b
	}
	if v, ok := raw["redirect-limit"]; ok {
		o.RedirectLimit = cast.ToInt(v)
	}
	if v, ok := raw["retry"]; ok {
		b := cast.ToBool(v)
		o.Retry = &b
	}
	if v, ok := raw["retries"]; ok {
		o.Retries = cast.ToInt(v)
	}
	if v, ok := raw["retry-non-idempotent"]; ok {
		o.RetryNonIdempotent = cast.ToBool(v)
	}
	if v, ok := raw["retry-http-codes"]; ok {
		for _, c := range cast.ToIntSlice(v) {
			o.RetryHTTPCodes = append(o.RetryHTTPCodes, c)
		}
	}
	if v, ok := raw["status-exception"]; ok {
		b := cast.ToBool(v)
		o.StatusException = &b
	}
	if v, ok := raw["read-timeout"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return Options{}, &ArgumentError{Field: "read-timeout", Msg: err.Error()}
		}
		o.ReadTimeout = d
	}
	if v, ok := raw["connect-timeout"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return Options{}, &ArgumentError{Field: "connect-timeout", Msg: err.Error()}
		}
		o.ConnectTimeout = d
	}
	if v, ok := raw["expect-continue-timeout"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return Options{}, &ArgumentError{Field: "expect-continue-timeout", Msg: err.Error()}
		}
		o.ExpectContinueTimeout = d
	}
	if v, ok := raw["idle-timeout"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return Options{}, &ArgumentError{Field: "idle-timeout", Msg: err.Error()}
		}
		o.IdleTimeout = d
	}
	if v, ok := raw["connection-limit-per-host"]; ok {
		o.ConnectionLimitPerHost = cast.ToInt(v)
	}
	if v, ok := raw["connection-limit"]; ok {
		o.ConnectionLimit = cast.ToInt(v)
	}
	if v, ok := raw["max-requests-per-connection"]; ok {
		o.MaxRequestsPerConn = cast.ToInt(v)
	}
	if v, ok := raw["require-ssl-verification"]; ok {
		b := cast.ToBool(v)
		o.RequireSSLVerification = &b
	}
	if v, ok := raw["forward-headers"]; ok {
		o.ForwardHeaders = cast.ToBool(v)
	}
	if v, ok := raw["basic-authorization"]; ok {
		o.BasicAuthorization = cast.ToBool(v)
	}
	if v, ok := raw["aws-authorization"]; ok {
		o.AWSAuthorization = cast.ToBool(v)
	}
	if v, ok := raw["aws-region"]; ok {
		o.AWSRegion = cast.ToString(v)
	}
	if v, ok := raw["aws-service"]; ok {
		o.AWSService = cast.ToString(v)
	}
	if v, ok := raw["cookies"]; ok {
		o.Cookies = cast.ToBool(v)
	}
	if v, ok := raw["canonicalize-headers"]; ok {
		o.CanonicalizeHeaders = cast.ToBool(v)
	}
	if v, ok := raw["detect-content-type"]; ok {
		o.DetectContentType = cast.ToBool(v)
	}
	if v, ok := raw["verbose"]; ok {
		o.Verbose = cast.ToInt(v)
	}
	if v, ok := raw["proxies"]; ok {
		for _, p := range cast.ToStringSlice(v) {
			o.Proxies = append(o.Proxies, p)
		}
	}
	o.fillDefaults()
	return o, nil
}
