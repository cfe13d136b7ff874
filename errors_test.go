package remotefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDisplay(t *testing.T) {
	assert.Equal(t, "uninitialized session", NewError(ErrNotConnected).Error())
	assert.Equal(t, "no such file or directory (/tmp/ghost)",
		WrapErrorMessage(ErrNoSuchFileOrDirectory, "/tmp/ghost").Error())
	assert.Equal(t, "i/o error (broken pipe)",
		WrapError(ErrIoError, errors.New("broken pipe")).Error())
}

func TestErrorKindMatching(t *testing.T) {
	err := WrapErrorMessage(ErrNoSuchFileOrDirectory, "/a/b")
	assert.True(t, errors.Is(err, ErrNoSuchFileOrDirectory))
	assert.False(t, errors.Is(err, ErrNotConnected))
	assert.Equal(t, ErrNoSuchFileOrDirectory, err.Kind())

	// wrapping with %w keeps the kind reachable
	wrapped := fmt.Errorf("while removing: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNoSuchFileOrDirectory))
}

func TestWrapErrorNilCause(t *testing.T) {
	err := WrapError(ErrProtocolError, nil)
	assert.Equal(t, "protocol error", err.Error())
}
