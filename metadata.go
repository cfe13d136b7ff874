package remotefs

import "time"

// FileType distinguishes the three kinds of entries a remote listing can
// report.
type FileType int

const (
	// TypeFile is a regular file.
	TypeFile FileType = iota
	// TypeDirectory is a directory.
	TypeDirectory
	// TypeSymlink is a symbolic link.
	TypeSymlink
)

func (t FileType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// Metadata describes a remote entry. Fields a protocol cannot report stay
// at their zero value: nil for UID/GID/Mode, empty string for Symlink,
// and the zero time for timestamps.
type Metadata struct {
	// Accessed, Created and Modified are the POSIX timestamps, where known.
	Accessed time.Time
	Created  time.Time
	Modified time.Time
	// Size in bytes. For directories this is whatever the server reports.
	Size uint64
	// UID and GID of the owner, if the protocol exposes them.
	UID *uint32
	GID *uint32
	// Mode holds the permission triple, if the protocol exposes it.
	Mode *UnixPex
	// Symlink is the link target for TypeSymlink entries, empty otherwise.
	Symlink string
	// Type tags the entry as file, directory or symlink.
	Type FileType
}

// IsDir reports whether the metadata describes a directory.
func (m Metadata) IsDir() bool {
	return m.Type == TypeDirectory
}

// IsFile reports whether the metadata describes a regular file.
func (m Metadata) IsFile() bool {
	return m.Type == TypeFile
}

// IsSymlink reports whether the metadata describes a symbolic link.
func (m Metadata) IsSymlink() bool {
	return m.Type == TypeSymlink
}

// WithSize returns a copy with Size set. Handy when building metadata for
// uploads.
func (m Metadata) WithSize(size uint64) Metadata {
	m.Size = size
	return m
}
