package remotefs

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func treeFS() *memFS {
	m := newMemFS()
	m.mkdir("/var")
	m.mkdir("/var/log")
	m.mkdir("/var/log/nginx")
	m.mkdir("/etc")
	m.write("/var/log/boot.log", []byte("boot"))
	m.write("/var/log/nginx/access.log", []byte("access"))
	m.write("/var/log/nginx/error.log", []byte("error"))
	m.write("/etc/hosts", []byte("localhost"))
	return m
}

func TestRemoveDirAllRecursesIntoTree(t *testing.T) {
	m := treeFS()
	err := RemoveDirAll(m, "/var")
	assert.NoError(t, err)
	for _, p := range []string{"/var", "/var/log", "/var/log/nginx", "/var/log/boot.log"} {
		exists, _ := m.Exists(p)
		assert.False(t, exists, "path: %s", p)
	}
	// unrelated subtree untouched
	exists, _ := m.Exists("/etc/hosts")
	assert.True(t, exists)
}

func TestRemoveDirAllOnFile(t *testing.T) {
	m := treeFS()
	assert.NoError(t, RemoveDirAll(m, "/etc/hosts"))
	exists, _ := m.Exists("/etc/hosts")
	assert.False(t, exists)
	exists, _ = m.Exists("/etc")
	assert.True(t, exists)
}

func TestRemoveDirAllMissingTarget(t *testing.T) {
	m := treeFS()
	err := RemoveDirAll(m, "/nope")
	assert.ErrorIs(t, err, ErrNoSuchFileOrDirectory)
}

func TestFindByWildcard(t *testing.T) {
	m := treeFS()
	found, err := Find(m, "*.log")
	assert.NoError(t, err)
	var paths []string
	for _, entry := range found {
		paths = append(paths, entry.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{
		"/var/log/boot.log",
		"/var/log/nginx/access.log",
		"/var/log/nginx/error.log",
	}, paths)
}

func TestFindMatchesDirectories(t *testing.T) {
	m := treeFS()
	found, err := Find(m, "log")
	assert.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "/var/log", found[0].Path)
	assert.True(t, found[0].IsDir())
}

func TestFindFromWorkingDirectory(t *testing.T) {
	m := treeFS()
	_, err := m.ChangeDir("/etc")
	assert.NoError(t, err)
	found, err := Find(m, "*")
	assert.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "/etc/hosts", found[0].Path)
}

func TestFindRejectsBadPattern(t *testing.T) {
	m := treeFS()
	_, err := Find(m, "[")
	assert.ErrorIs(t, err, ErrBadFile)
}

func TestCreateFileAndOpenFile(t *testing.T) {
	m := newMemFS()
	payload := strings.Repeat("x", 1000)
	n, err := CreateFile(m, "/data.bin", Metadata{Size: uint64(len(payload))}, strings.NewReader(payload))
	assert.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	var out bytes.Buffer
	n, err = OpenFile(m, "/data.bin", &out)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, out.String())
}

func TestAppendFileExtends(t *testing.T) {
	m := newMemFS()
	m.write("/notes.txt", []byte("one\n"))
	n, err := AppendFile(m, "/notes.txt", Metadata{}, strings.NewReader("two\n"))
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)

	var out bytes.Buffer
	_, err = OpenFile(m, "/notes.txt", &out)
	assert.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestWriteStreamCommitsOnClose(t *testing.T) {
	m := newMemFS()
	stream, err := m.Create("/pending.txt", Metadata{})
	assert.NoError(t, err)
	_, err = stream.Write([]byte("half"))
	assert.NoError(t, err)

	exists, _ := m.Exists("/pending.txt")
	assert.False(t, exists, "file must not appear before the stream is closed")

	assert.NoError(t, stream.Close())
	exists, _ = m.Exists("/pending.txt")
	assert.True(t, exists)
}
