// Package remotefs defines a uniform contract for working with remote
// file systems over SFTP, SCP, FTP/FTPS and S3. Protocol clients live in
// their own packages (sftp, scp, ftp, s3) and all satisfy FileSystem, so
// callers can list, stat, transfer and delete without caring which wire
// protocol is underneath.
package remotefs

import "io"

// FileSystem is the operation contract every protocol client satisfies.
//
// All paths may be absolute or relative; relative paths are resolved
// against the client's remote working directory. Every method except
// Connect and IsConnected fails with ErrNotConnected until Connect has
// succeeded. Operations a protocol cannot express fail with
// ErrUnsupportedFeature.
type FileSystem interface {
	// Connect establishes the session and returns the server greeting.
	Connect() (Welcome, error)

	// Disconnect tears the session down.
	Disconnect() error

	// IsConnected reports whether there is a usable session. It never
	// fails; a half-open transport counts as disconnected.
	IsConnected() bool

	// Pwd returns the remote working directory.
	Pwd() (string, error)

	// ChangeDir moves the remote working directory and returns the
	// previous one.
	ChangeDir(dir string) (string, error)

	// ListDir returns the entries directly inside path.
	ListDir(path string) ([]Entry, error)

	// Stat resolves path to a single entry.
	Stat(path string) (Entry, error)

	// SetStat applies the metadata's times, permissions and ownership to
	// path, where the protocol allows.
	SetStat(path string, metadata Metadata) error

	// Exists reports whether path names an existing entry.
	Exists(path string) (bool, error)

	// RemoveFile removes a regular file or symlink.
	RemoveFile(path string) error

	// RemoveDir removes an empty directory.
	RemoveDir(path string) error

	// RemoveDirAll removes path and everything beneath it.
	RemoveDirAll(path string) error

	// CreateDir creates one directory with the given permissions. The
	// parent must exist, and the directory must not.
	CreateDir(path string, mode UnixPex) error

	// Symlink creates a symbolic link at path pointing to target.
	Symlink(path, target string) error

	// Copy duplicates src at dest.
	Copy(src, dest string) error

	// Move renames src to dest.
	Move(src, dest string) error

	// Exec runs a shell command remotely, returning its exit code and
	// combined output.
	Exec(cmd string) (uint32, string, error)

	// Create opens path for writing, truncating any previous content.
	// The returned stream must be closed to finalize the transfer.
	Create(path string, metadata Metadata) (WriteStream, error)

	// Append opens path for writing at its end.
	Append(path string, metadata Metadata) (WriteStream, error)

	// Open opens path for reading. The returned stream must be closed.
	Open(path string) (ReadStream, error)

	// CreateFile writes reader out to path in full, returning the number
	// of bytes transferred.
	CreateFile(path string, metadata Metadata, reader io.Reader) (int64, error)

	// AppendFile appends reader to path in full, returning the number of
	// bytes transferred.
	AppendFile(path string, metadata Metadata, reader io.Reader) (int64, error)

	// OpenFile reads path in full into dest, returning the number of
	// bytes transferred.
	OpenFile(path string, dest io.Writer) (int64, error)

	// Find walks the working directory recursively and returns entries
	// whose name matches the wildcard pattern (e.g. "*.log").
	Find(pattern string) ([]Entry, error)
}
