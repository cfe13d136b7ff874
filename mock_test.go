package remotefs

import (
	"bytes"
	"io"
	"path"
	"sort"

	"github.com/m-manu/remotefs/pathutil"
)

// memFS is an in-memory FileSystem used to exercise the generic
// algorithms without a network.
type memFS struct {
	wrkdir string
	dirs   map[string]bool
	files  map[string][]byte
}

func newMemFS() *memFS {
	return &memFS{
		wrkdir: "/",
		dirs:   map[string]bool{"/": true},
		files:  map[string][]byte{},
	}
}

func (m *memFS) mkdir(p string)           { m.dirs[p] = true }
func (m *memFS) write(p string, b []byte) { m.files[p] = b }

func (m *memFS) Connect() (Welcome, error) { return Welcome{}, nil }
func (m *memFS) Disconnect() error         { return nil }
func (m *memFS) IsConnected() bool         { return true }

func (m *memFS) Pwd() (string, error) { return m.wrkdir, nil }

func (m *memFS) ChangeDir(dir string) (string, error) {
	abs := pathutil.Resolve(m.wrkdir, dir)
	if !m.dirs[abs] {
		return "", NewError(ErrNoSuchFileOrDirectory)
	}
	prev := m.wrkdir
	m.wrkdir = abs
	return prev, nil
}

func (m *memFS) ListDir(p string) ([]Entry, error) {
	abs := pathutil.Resolve(m.wrkdir, p)
	if !m.dirs[abs] {
		return nil, NewError(ErrNoSuchFileOrDirectory)
	}
	var entries []Entry
	for d := range m.dirs {
		if d != "/" && path.Dir(d) == abs {
			entries = append(entries, NewEntry(d, Metadata{Type: TypeDirectory}))
		}
	}
	for f, content := range m.files {
		if path.Dir(f) == abs {
			entries = append(entries, NewEntry(f, Metadata{Type: TypeFile, Size: uint64(len(content))}))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *memFS) Stat(p string) (Entry, error) {
	abs := pathutil.Resolve(m.wrkdir, p)
	if m.dirs[abs] {
		return NewEntry(abs, Metadata{Type: TypeDirectory}), nil
	}
	if content, ok := m.files[abs]; ok {
		return NewEntry(abs, Metadata{Type: TypeFile, Size: uint64(len(content))}), nil
	}
	return Entry{}, NewError(ErrNoSuchFileOrDirectory)
}

func (m *memFS) SetStat(p string, metadata Metadata) error { return nil }

func (m *memFS) Exists(p string) (bool, error) {
	_, err := m.Stat(p)
	return err == nil, nil
}

func (m *memFS) RemoveFile(p string) error {
	abs := pathutil.Resolve(m.wrkdir, p)
	if _, ok := m.files[abs]; !ok {
		return NewError(ErrNoSuchFileOrDirectory)
	}
	delete(m.files, abs)
	return nil
}

func (m *memFS) RemoveDir(p string) error {
	abs := pathutil.Resolve(m.wrkdir, p)
	if !m.dirs[abs] {
		return NewError(ErrNoSuchFileOrDirectory)
	}
	children, _ := m.ListDir(abs)
	if len(children) > 0 {
		return NewError(ErrDirectoryNotEmpty)
	}
	delete(m.dirs, abs)
	return nil
}

func (m *memFS) RemoveDirAll(p string) error { return RemoveDirAll(m, p) }

func (m *memFS) CreateDir(p string, mode UnixPex) error {
	abs := pathutil.Resolve(m.wrkdir, p)
	if m.dirs[abs] {
		return NewError(ErrDirectoryAlreadyExists)
	}
	m.dirs[abs] = true
	return nil
}

func (m *memFS) Symlink(p, target string) error { return NewError(ErrUnsupportedFeature) }
func (m *memFS) Copy(src, dest string) error    { return NewError(ErrUnsupportedFeature) }
func (m *memFS) Move(src, dest string) error    { return NewError(ErrUnsupportedFeature) }

func (m *memFS) Exec(cmd string) (uint32, string, error) {
	return 0, "", NewError(ErrUnsupportedFeature)
}

func (m *memFS) Create(p string, metadata Metadata) (WriteStream, error) {
	abs := pathutil.Resolve(m.wrkdir, p)
	return &memWriter{fs: m, path: abs}, nil
}

func (m *memFS) Append(p string, metadata Metadata) (WriteStream, error) {
	abs := pathutil.Resolve(m.wrkdir, p)
	return &memWriter{fs: m, path: abs, buf: *bytes.NewBuffer(m.files[abs])}, nil
}

func (m *memFS) Open(p string) (ReadStream, error) {
	abs := pathutil.Resolve(m.wrkdir, p)
	content, ok := m.files[abs]
	if !ok {
		return nil, NewError(ErrNoSuchFileOrDirectory)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *memFS) CreateFile(p string, metadata Metadata, reader io.Reader) (int64, error) {
	return CreateFile(m, p, metadata, reader)
}

func (m *memFS) AppendFile(p string, metadata Metadata, reader io.Reader) (int64, error) {
	return AppendFile(m, p, metadata, reader)
}

func (m *memFS) OpenFile(p string, dest io.Writer) (int64, error) {
	return OpenFile(m, p, dest)
}

func (m *memFS) Find(pattern string) ([]Entry, error) { return Find(m, pattern) }

// memWriter commits its buffer on Close, mirroring the finalize
// semantics of the real write streams.
type memWriter struct {
	fs   *memFS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.files[w.path] = w.buf.Bytes()
	return nil
}

var _ FileSystem = (*memFS)(nil)
