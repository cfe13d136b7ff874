package scp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/m-manu/remotefs"
)

func TestParseLsLineFile(t *testing.T) {
	entry, ok := parseLsLine("/tmp", "-rw-r--r-- 1 root root 2056 Nov 5 2019 Cargo.toml")
	assert.True(t, ok)
	assert.Equal(t, "Cargo.toml", entry.Name)
	assert.Equal(t, "/tmp/Cargo.toml", entry.Path)
	assert.True(t, entry.IsFile())
	assert.Equal(t, uint64(2056), entry.Metadata.Size)
	assert.Equal(t, uint32(0o644), entry.Metadata.Mode.Mode())
	assert.Equal(t, time.Date(2019, time.November, 5, 0, 0, 0, 0, time.UTC), entry.Metadata.Modified)
}

func TestParseLsLineDirectory(t *testing.T) {
	entry, ok := parseLsLine("/home/user", "drwxr-xr-x 2 1000 1000 4096 Nov 5 2019 docs")
	assert.True(t, ok)
	assert.True(t, entry.IsDir())
	assert.Equal(t, "docs", entry.Name)
	assert.Equal(t, "/home/user/docs", entry.Path)
	assert.Equal(t, uint32(0o755), entry.Metadata.Mode.Mode())
	assert.Equal(t, uint32(1000), *entry.Metadata.UID)
	assert.Equal(t, uint32(1000), *entry.Metadata.GID)
}

func TestParseLsLineSymlink(t *testing.T) {
	entry, ok := parseLsLine("/tmp", "lrwxrwxrwx 1 root root 11 Nov 5 13:46 link -> /tmp/target")
	assert.True(t, ok)
	assert.True(t, entry.IsSymlink())
	assert.Equal(t, "link", entry.Name)
	assert.Equal(t, "/tmp/link", entry.Path)
	assert.Equal(t, "/tmp/target", entry.Metadata.Symlink)
}

func TestParseLsLineNonNumericOwner(t *testing.T) {
	entry, ok := parseLsLine("/tmp", "-rw-r--r-- 1 root wheel 100 Nov 5 2019 file.txt")
	assert.True(t, ok)
	assert.Nil(t, entry.Metadata.UID)
	assert.Nil(t, entry.Metadata.GID)
}

func TestParseLsLineSetuidCountsAsExecute(t *testing.T) {
	entry, ok := parseLsLine("/usr/bin", "-rwsr-xr-x 1 0 0 55528 Nov 5 2019 passwd")
	assert.True(t, ok)
	assert.Equal(t, uint32(0o755), entry.Metadata.Mode.Mode())
}

func TestParseLsLineUnparseableMonthDefaultsToEpoch(t *testing.T) {
	// localized month names fail the time parse; the entry survives
	entry, ok := parseLsLine("/tmp", "-rw-r--r-- 1 root root 2056 giu 13 21:11 Cargo.toml")
	assert.True(t, ok)
	assert.Equal(t, time.Unix(0, 0).UTC(), entry.Metadata.Modified)
}

func TestParseLsLinePathEchoedInsteadOfName(t *testing.T) {
	entry, ok := parseLsLine("/tmp", "-rw-r--r-- 1 root root 2056 Nov 5 2019 /tmp/Cargo.toml")
	assert.True(t, ok)
	assert.Equal(t, "Cargo.toml", entry.Name)
	assert.Equal(t, "/tmp/Cargo.toml", entry.Path)
}

func TestParseLsLineRejects(t *testing.T) {
	tests := []string{
		"total 32",
		"",
		"crw-rw-rw- 1 root root 1, 3 Nov 5 2019 null",   // character device
		"brw-rw---- 1 root disk 8, 0 Nov 5 2019 sda",    // block device
		"-rw-r--r-- 1 root root notasize Nov 5 2019 f",  // malformed size
		"-rw-r--r-- 1 root root 10 sometime f",          // malformed mtime
	}
	for _, line := range tests {
		_, ok := parseLsLine("/", line)
		assert.False(t, ok, "line: %s", line)
	}
}

func TestParseLsLineFiltersDotEntries(t *testing.T) {
	_, ok := parseLsLine("/tmp", "drwxr-xr-x 2 root root 4096 Nov 5 2019 .")
	assert.False(t, ok)
	_, ok = parseLsLine("/tmp", "drwxr-xr-x 2 root root 4096 Nov 5 2019 ..")
	assert.False(t, ok)
}

func TestParseLsTime(t *testing.T) {
	yearForm, err := parseLsTime("Nov 5 2019")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2019, time.November, 5, 0, 0, 0, 0, time.UTC), yearForm)

	clockForm, err := parseLsTime("Nov 5 13:46")
	assert.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Year(), clockForm.Year())
	assert.Equal(t, 13, clockForm.Hour())
	assert.Equal(t, 46, clockForm.Minute())

	// variable whitespace is normalized
	padded, err := parseLsTime("Nov  5 2019")
	assert.NoError(t, err)
	assert.Equal(t, yearForm, padded)

	_, err = parseLsTime("giu 13 21:11")
	assert.Error(t, err)
}

func TestPexClass(t *testing.T) {
	assert.Equal(t, uint8(0o7), pexClass("rwx").Octet())
	assert.Equal(t, uint8(0o5), pexClass("r-x").Octet())
	assert.Equal(t, uint8(0o0), pexClass("---").Octet())
	assert.Equal(t, uint8(0o7), pexClass("rws").Octet())
}

func TestNotConnectedGuards(t *testing.T) {
	fs := NewFS(nil)
	_, err := fs.Pwd()
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	_, err = fs.ListDir("/")
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	_, err = fs.Stat("/tmp")
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	assert.ErrorIs(t, fs.RemoveFile("/tmp/x"), remotefs.ErrNotConnected)
	assert.ErrorIs(t, fs.Disconnect(), remotefs.ErrNotConnected)
	_, _, err = fs.Exec("true")
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	assert.False(t, fs.IsConnected())
}
