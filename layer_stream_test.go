package httpreq

import (
	"errors"
	"testing"

	"github.com/shiroyk/ski-ext/httpreq/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateWireErrMapsParsingErrorDistinctFromIOError(t *testing.T) {
	t.Parallel()

	translated := translateWireErr(&wire.ParsingError{Kind: "status-line", At: "garbage"})
	var parseErr *ParsingError
	require.ErrorAs(t, translated, &parseErr)
	assert.Equal(t, "status-line", parseErr.Kind)

	var ioErr *IOError
	assert.False(t, errors.As(translated, &ioErr), "a translated ParsingError must never also be an IOError")
}

func TestTranslateWireErrMapsIOError(t *testing.T) {
	t.Parallel()

	translated := translateWireErr(&wire.IOError{Op: "read", Cause: errors.New("reset")})
	var ioErr *IOError
	assert.ErrorAs(t, translated, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

func TestParsingErrorIsNeverRecoverable(t *testing.T) {
	t.Parallel()
	translated := translateWireErr(&wire.ParsingError{Kind: "header", At: "oops"})
	assert.False(t, isRecoverable(translated, nil), "ParsingError must never be retried")
}
