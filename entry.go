package remotefs

import (
	"path"
	"strings"
)

// Entry is a single remote filesystem entry: a regular file, a directory
// or a symlink. Name is the last path component ("/" for the root
// directory), Path is absolute on the remote host.
type Entry struct {
	Name     string
	Path     string
	Metadata Metadata
}

// NewEntry builds an Entry for absPath, deriving Name from its last
// component.
func NewEntry(absPath string, metadata Metadata) Entry {
	name := path.Base(absPath)
	if absPath == "/" {
		name = "/"
	}
	return Entry{Name: name, Path: absPath, Metadata: metadata}
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Metadata.IsDir()
}

// IsFile reports whether the entry is a regular file.
func (e Entry) IsFile() bool {
	return e.Metadata.IsFile()
}

// IsSymlink reports whether the entry is a symbolic link.
func (e Entry) IsSymlink() bool {
	return e.Metadata.IsSymlink()
}

// IsHidden reports whether the entry name starts with a dot.
func (e Entry) IsHidden() bool {
	return strings.HasPrefix(e.Name, ".")
}

// Extension returns the entry's file extension without the leading dot,
// or "" if there is none.
func (e Entry) Extension() string {
	ext := path.Ext(e.Name)
	return strings.TrimPrefix(ext, ".")
}
