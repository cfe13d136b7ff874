package remotefs

import (
	"fmt"
	"io"
	"path"

	mapset "github.com/deckarep/golang-set/v2"
)

// RemoveDirAll is the protocol-agnostic recursive delete. Clients without
// a native equivalent (SFTP, FTP) delegate to it; clients with one (SCP's
// rm -rf) override it.
func RemoveDirAll(f FileSystem, p string) error {
	entry, err := f.Stat(p)
	if err != nil {
		return err
	}
	return removeEntry(f, entry)
}

func removeEntry(f FileSystem, entry Entry) error {
	if !entry.IsDir() {
		return f.RemoveFile(entry.Path)
	}
	children, err := f.ListDir(entry.Path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := removeEntry(f, child); err != nil {
			return err
		}
	}
	return f.RemoveDir(entry.Path)
}

// Find is the protocol-agnostic recursive search: it walks the remote
// working directory and returns every entry whose name matches the
// wildcard pattern. Directories reached through symlink loops are visited
// once.
func Find(f FileSystem, pattern string) ([]Entry, error) {
	wrkdir, err := f.Pwd()
	if err != nil {
		return nil, err
	}
	visited := mapset.NewThreadUnsafeSet[string]()
	return findIn(f, wrkdir, pattern, visited)
}

func findIn(f FileSystem, dir, pattern string, visited mapset.Set[string]) ([]Entry, error) {
	if !visited.Add(dir) {
		return nil, nil
	}
	entries, err := f.ListDir(dir)
	if err != nil {
		return nil, err
	}
	var found []Entry
	for _, entry := range entries {
		matched, err := path.Match(pattern, entry.Name)
		if err != nil {
			return nil, WrapError(ErrBadFile, fmt.Errorf("bad search pattern %q: %w", pattern, err))
		}
		if matched {
			found = append(found, entry)
		}
		if entry.IsDir() {
			sub, err := findIn(f, entry.Path, pattern, visited)
			if err != nil {
				return nil, err
			}
			found = append(found, sub...)
		}
	}
	return found, nil
}

// CreateFile is the stream-based whole-file upload used by clients whose
// Create already returns a finalizing stream.
func CreateFile(f FileSystem, p string, metadata Metadata, reader io.Reader) (int64, error) {
	stream, err := f.Create(p, metadata)
	if err != nil {
		return 0, err
	}
	return copyAndClose(stream, reader)
}

// AppendFile is the stream-based whole-file append.
func AppendFile(f FileSystem, p string, metadata Metadata, reader io.Reader) (int64, error) {
	stream, err := f.Append(p, metadata)
	if err != nil {
		return 0, err
	}
	return copyAndClose(stream, reader)
}

// OpenFile is the stream-based whole-file download.
func OpenFile(f FileSystem, p string, dest io.Writer) (int64, error) {
	stream, err := f.Open(p)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(dest, stream)
	if err != nil {
		_ = stream.Close()
		return written, WrapError(ErrIoError, err)
	}
	if err := stream.Close(); err != nil {
		return written, err
	}
	return written, nil
}

func copyAndClose(stream WriteStream, reader io.Reader) (int64, error) {
	written, err := io.Copy(stream, reader)
	if err != nil {
		_ = stream.Close()
		return written, WrapError(ErrIoError, err)
	}
	if err := stream.Close(); err != nil {
		return written, err
	}
	return written, nil
}
