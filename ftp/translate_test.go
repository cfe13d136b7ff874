package ftp

import (
	"testing"
	"time"

	ftplib "github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"

	"github.com/m-manu/remotefs"
)

func TestTranslateFile(t *testing.T) {
	modified := time.Date(2021, time.March, 9, 10, 30, 0, 0, time.UTC)
	entry, ok := translate("/pub", &ftplib.Entry{
		Name: "release.tar.gz",
		Type: ftplib.EntryTypeFile,
		Size: 4096,
		Time: modified,
	})
	assert.True(t, ok)
	assert.Equal(t, "release.tar.gz", entry.Name)
	assert.Equal(t, "/pub/release.tar.gz", entry.Path)
	assert.True(t, entry.IsFile())
	assert.Equal(t, uint64(4096), entry.Metadata.Size)
	assert.Equal(t, modified, entry.Metadata.Modified)
	// FTP reports no ownership or permissions
	assert.Nil(t, entry.Metadata.UID)
	assert.Nil(t, entry.Metadata.GID)
	assert.Nil(t, entry.Metadata.Mode)
}

func TestTranslateDirectory(t *testing.T) {
	entry, ok := translate("/", &ftplib.Entry{
		Name: "incoming",
		Type: ftplib.EntryTypeFolder,
	})
	assert.True(t, ok)
	assert.True(t, entry.IsDir())
	assert.Equal(t, "/incoming", entry.Path)
}

func TestTranslateSymlink(t *testing.T) {
	entry, ok := translate("/pub", &ftplib.Entry{
		Name:   "latest",
		Type:   ftplib.EntryTypeLink,
		Target: "release-2.0",
	})
	assert.True(t, ok)
	assert.True(t, entry.IsSymlink())
	assert.Equal(t, "/pub/release-2.0", entry.Metadata.Symlink)
}

func TestTranslateFiltersDotEntries(t *testing.T) {
	_, ok := translate("/", &ftplib.Entry{Name: ".", Type: ftplib.EntryTypeFolder})
	assert.False(t, ok)
	_, ok = translate("/", &ftplib.Entry{Name: "..", Type: ftplib.EntryTypeFolder})
	assert.False(t, ok)
}

func TestNotConnectedGuards(t *testing.T) {
	fs := NewFS(NewOpts("ftp.example.com"))
	_, err := fs.Pwd()
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	_, err = fs.ListDir("/")
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	_, err = fs.ChangeDir("/pub")
	assert.ErrorIs(t, err, remotefs.ErrNotConnected)
	assert.ErrorIs(t, fs.Move("/a", "/b"), remotefs.ErrNotConnected)
	assert.ErrorIs(t, fs.Disconnect(), remotefs.ErrNotConnected)
	assert.False(t, fs.IsConnected())
}

func TestOptsChaining(t *testing.T) {
	opts := NewOpts("ftp.example.com").
		WithPort(2121).
		WithCredentials("user", "secret").
		WithSecure(true).
		WithTimeout(5 * time.Second)
	assert.Equal(t, "ftp.example.com", opts.Host)
	assert.Equal(t, 2121, opts.Port)
	assert.Equal(t, "user", opts.User)
	assert.True(t, opts.Secure)
	assert.True(t, opts.SkipTLSVerify)
	assert.Equal(t, 5*time.Second, opts.Timeout)
}
