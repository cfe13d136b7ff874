package remotefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnixPexClassOctet(t *testing.T) {
	tests := []struct {
		octet   uint8
		read    bool
		write   bool
		execute bool
	}{
		{0o0, false, false, false},
		{0o1, false, false, true},
		{0o2, false, true, false},
		{0o4, true, false, false},
		{0o5, true, false, true},
		{0o6, true, true, false},
		{0o7, true, true, true},
	}
	for _, tt := range tests {
		class := NewUnixPexClass(tt.octet)
		assert.Equal(t, tt.read, class.Read, "octet: %o", tt.octet)
		assert.Equal(t, tt.write, class.Write, "octet: %o", tt.octet)
		assert.Equal(t, tt.execute, class.Execute, "octet: %o", tt.octet)
		assert.Equal(t, tt.octet, class.Octet(), "octet: %o", tt.octet)
	}
}

func TestUnixPexModeRoundTrip(t *testing.T) {
	for mode := uint32(0); mode <= 0o777; mode++ {
		assert.Equal(t, mode, UnixPexFromMode(mode).Mode(), "mode: %o", mode)
	}
}

func TestUnixPexDiscardsSpecialBits(t *testing.T) {
	// setuid + 0755 collapses to 0755
	assert.Equal(t, uint32(0o755), UnixPexFromMode(0o4755).Mode())
	assert.Equal(t, uint32(0o644), UnixPexFromMode(0o1644).Mode())
}

func TestUnixPexQueries(t *testing.T) {
	readOnly := UnixPexFromMode(0o444)
	assert.True(t, readOnly.CanRead())
	assert.False(t, readOnly.CanWrite())
	assert.False(t, readOnly.CanExecute())

	full := UnixPexFromMode(0o700)
	assert.True(t, full.CanRead())
	assert.True(t, full.CanWrite())
	assert.True(t, full.CanExecute())

	none := UnixPexFromMode(0)
	assert.False(t, none.CanRead())
}
