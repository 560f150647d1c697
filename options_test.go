package httpreq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillDefaultsLeavesExplicitFalseAlone(t *testing.T) {
	t.Parallel()
	no := false
	opts := Options{Redirect: &no, Retry: &no, StatusException: &no, RequireSSLVerification: &no}
	opts.fillDefaults()

	assert.False(t, opts.redirectEnabled())
	assert.False(t, opts.retryEnabled())
	assert.False(t, opts.statusExceptionEnabled())
	assert.False(t, opts.verifySSL())
}

func TestFillDefaultsAppliesTrueWhenUnset(t *testing.T) {
	t.Parallel()
	opts := Options{}
	opts.fillDefaults()

	assert.True(t, opts.redirectEnabled())
	assert.True(t, opts.retryEnabled())
	assert.True(t, opts.statusExceptionEnabled())
	assert.True(t, opts.verifySSL())
}

func TestDefaultOptionsPopulatesNumericDefaults(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	assert.Equal(t, DefaultRedirectLimit, opts.RedirectLimit)
	assert.Equal(t, DefaultRetries, opts.Retries)
	assert.Equal(t, DefaultConnectTimeout, opts.ConnectTimeout)
	assert.Equal(t, DefaultConnectionLimitPerHost, opts.ConnectionLimitPerHost)
	assert.Equal(t, DefaultRetryHTTPCodes, opts.RetryHTTPCodes)
	assert.NotNil(t, opts.Logger)
}

func TestLoadOptionsDecodesYAML(t *testing.T) {
	t.Parallel()
	doc := `
redirect: false
redirect-limit: 7
retries: 2
read-timeout: 5s
connection-limit: 20
aws-region: us-east-1
proxies:
  - http://proxy.local:8080
`
	opts, err := LoadOptions(strings.NewReader(doc))
	require.NoError(t, err)
	assert.False(t, opts.redirectEnabled())
	assert.Equal(t, 7, opts.RedirectLimit)
	assert.Equal(t, 2, opts.Retries)
	assert.Equal(t, 5e9, float64(opts.ReadTimeout))
	assert.Equal(t, 20, opts.ConnectionLimit)
	assert.Equal(t, "us-east-1", opts.AWSRegion)
	assert.Equal(t, []string{"http://proxy.local:8080"}, opts.Proxies)
}

func TestLoadOptionsRejectsBadDuration(t *testing.T) {
	t.Parallel()
	_, err := LoadOptions(strings.NewReader("read-timeout: not-a-duration\n"))
	require.Error(t, err)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}
