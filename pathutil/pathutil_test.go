package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		wrkdir string
		input  string
		expect string
	}{
		{"/home/user", "docs", "/home/user/docs"},
		{"/home/user", "/etc/hosts", "/etc/hosts"},
		{"/home/user", "..", "/home"},
		{"/home/user", "../..", "/"},
		{"/home/user", "../../..", "/"},
		{"/home/user", ".", "/home/user"},
		{"/home/user", "", "/home/user"},
		{"/", "a/./b/../c", "/a/c"},
		{"/", "/", "/"},
		{"/a", "b//c", "/a/b/c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, Resolve(tt.wrkdir, tt.input),
			"wrkdir: %s input: %s", tt.wrkdir, tt.input)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		path   string
		base   string
		expect string
	}{
		{"/a/b/c", "/a", "b/c"},
		{"/a/b/c", "/a/b", "c"},
		{"/a/b", "/a/b", "."},
		{"/a/b", "/a/x", "../b"},
		{"/a", "/a/b/c", "../.."},
		{"/x/y", "/a/b", "../../x/y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, Diff(tt.path, tt.base),
			"path: %s base: %s", tt.path, tt.base)
	}
}

func TestFmtPath(t *testing.T) {
	tests := []struct {
		path   string
		isDir  bool
		expect string
	}{
		{"/", true, ""},
		{"/pippo", true, "pippo/"},
		{"/pippo", false, "pippo"},
		{"/pippo/sottocartella", true, "pippo/sottocartella/"},
		{"/pippo/sottocartella/", true, "pippo/sottocartella/"},
		{"/pippo/chiedo.gif", false, "pippo/chiedo.gif"},
		// already bucket-relative inputs pass through
		{"pippo/chiedo.gif", false, "pippo/chiedo.gif"},
		{"pippo", true, "pippo/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, FmtPath(tt.path, tt.isDir),
			"path: %s isDir: %v", tt.path, tt.isDir)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		path   string
		expect string
	}{
		{"/", "/"},
		{"", "/"},
		{"/etc/hosts", "hosts"},
		{"/etc/nginx/", "nginx"},
		{"README.md", "README.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, Name(tt.path), "path: %s", tt.path)
	}
}
