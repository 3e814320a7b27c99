package errors

import (
	"fmt"
	"testing"

	stderrors "errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeConfig, "missing account")
	assert.Equal(t, "config: missing account", err.Error())

	wrapped := Wrap(fmt.Errorf("dial tcp: refused"), ErrorTypeConnection, "open channel failed")
	assert.Equal(t, "connection: open channel failed: dial tcp: refused", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeData, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrorTypeData, "ignored %d", 1))
}

func TestUnwrapChain(t *testing.T) {
	sentinel := stderrors.New("boom")
	err := Wrap(Wrap(sentinel, ErrorTypeStorage, "append failed"), ErrorTypeInternal, "tick failed")
	require.True(t, stderrors.Is(err, sentinel))

	var structured *Error
	require.True(t, stderrors.As(err, &structured))
	assert.Equal(t, ErrorTypeInternal, structured.Type)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeRateLimit, TypeOf(New(ErrorTypeRateLimit, "slow down")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("plain")))
	// Wrapped plain error takes the wrapper's type.
	assert.Equal(t, ErrorTypeTimeout, TypeOf(Wrap(stderrors.New("deadline"), ErrorTypeTimeout, "status poll")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeConnection, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeConfig, false},
		{ErrorTypeAuthentication, false},
		{ErrorTypeData, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.retryable, IsRetryable(New(tt.errType, "x")), string(tt.errType))
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeData, "bad row").
		WithDetail("stream", "LIFT_RIDE").
		WithDetail("seq", uint64(42))
	assert.Equal(t, "LIFT_RIDE", err.Details["stream"])
	assert.Equal(t, uint64(42), err.Details["seq"])
}
