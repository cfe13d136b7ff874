package remotefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEntry(t *testing.T) {
	entry := NewEntry("/home/user/notes.txt", Metadata{Type: TypeFile, Size: 42})
	assert.Equal(t, "notes.txt", entry.Name)
	assert.Equal(t, "/home/user/notes.txt", entry.Path)
	assert.True(t, entry.IsFile())
	assert.False(t, entry.IsDir())
	assert.False(t, entry.IsSymlink())
}

func TestNewEntryRoot(t *testing.T) {
	root := NewEntry("/", Metadata{Type: TypeDirectory})
	assert.Equal(t, "/", root.Name)
	assert.True(t, root.IsDir())
}

func TestEntryExtension(t *testing.T) {
	tests := []struct {
		path string
		ext  string
	}{
		{"/tmp/archive.tar.gz", "gz"},
		{"/tmp/README", ""},
		{"/tmp/photo.JPG", "JPG"},
		{"/tmp/.bashrc", "bashrc"},
	}
	for _, tt := range tests {
		entry := NewEntry(tt.path, Metadata{Type: TypeFile})
		assert.Equal(t, tt.ext, entry.Extension(), "path: %s", tt.path)
	}
}

func TestEntryIsHidden(t *testing.T) {
	assert.True(t, NewEntry("/home/user/.ssh", Metadata{Type: TypeDirectory}).IsHidden())
	assert.False(t, NewEntry("/home/user/docs", Metadata{Type: TypeDirectory}).IsHidden())
}
