package httpreq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRecoverableIOErrorAlwaysRecoverable(t *testing.T) {
	t.Parallel()
	err := &IOError{Op: "dial", Cause: errors.New("refused")}
	assert.True(t, isRecoverable(err, nil))
	assert.True(t, isRecoverable(err, []int{999}))
}

func TestIsRecoverableStatusErrorDefaultClassification(t *testing.T) {
	t.Parallel()
	assert.True(t, isRecoverable(&StatusError{Status: 500}, nil))
	assert.True(t, isRecoverable(&StatusError{Status: 403}, nil))
	assert.True(t, isRecoverable(&StatusError{Status: 408}, nil))
	assert.False(t, isRecoverable(&StatusError{Status: 404}, nil))
}

func TestIsRecoverableStatusErrorConfiguredCodes(t *testing.T) {
	t.Parallel()
	assert.True(t, isRecoverable(&StatusError{Status: 429}, []int{429}))
	assert.False(t, isRecoverable(&StatusError{Status: 404}, []int{429}))
	assert.True(t, isRecoverable(&StatusError{Status: 502}, []int{429}), "5xx is always recoverable regardless of the configured list")
}

func TestIsRecoverableUnclassifiedError(t *testing.T) {
	t.Parallel()
	assert.False(t, isRecoverable(errors.New("boom"), nil))
}

func TestRetryErrorUnwrapsToLast(t *testing.T) {
	t.Parallel()
	last := errors.New("final failure")
	re := &RetryError{Attempts: 3, Last: last}
	assert.ErrorIs(t, re, last)
}
