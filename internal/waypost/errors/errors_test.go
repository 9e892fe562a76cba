package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError("SEND_FAILED", "endpoint returned 503", "HTTPSender.Send", ErrTransport)
	assert.Equal(t, "HTTPSender.Send: endpoint returned 503", err.Error())

	bare := NewError("SEND_FAILED", "endpoint returned 503", "", ErrTransport)
	assert.Equal(t, "endpoint returned 503", bare.Error())
}

func TestErrorUnwrapping(t *testing.T) {
	err := NewError("SEND_FAILED", "boom", "HTTPSender.Send", ErrTransport)
	assert.True(t, IsTransport(err))
	assert.False(t, IsValidation(err))

	wrapped := fmt.Errorf("flush: %w", err)
	assert.True(t, IsTransport(wrapped))
}

func TestSentinelHelpers(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("%w: missing endpoint", ErrValidation)))
	assert.True(t, IsOffline(ErrOffline))
	assert.True(t, IsUnknownJourney(fmt.Errorf("%w: checkout", ErrUnknownJourney)))
	assert.True(t, IsShutdown(ErrShutdown))
	assert.False(t, IsTransport(ErrValidation))
}
