package s3

import (
	"strings"
	"time"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
)

// S3 has no directories, only keys: a key ending in "/" is a directory
// marker, everything else is a file. entryFromKey maps one object record
// into the common entry model.
func entryFromKey(key string, size int64, lastModified *time.Time) remotefs.Entry {
	isDir := strings.HasSuffix(key, "/")
	fileType := remotefs.TypeFile
	if isDir {
		fileType = remotefs.TypeDirectory
	}
	modified := time.Unix(0, 0).UTC()
	if lastModified != nil {
		modified = *lastModified
	}
	md := remotefs.Metadata{
		Modified: modified,
		Size:     uint64(size),
		Type:     fileType,
	}
	entry := remotefs.NewEntry(pathutil.Resolve("/", key), md)
	entry.Name = objectName(key)
	return entry
}

// objectName returns the last non-empty segment of a key: "a/b" and
// "a/b/" both name "b".
func objectName(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	if trimmed == "" {
		return "/"
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// isDirectChild reports whether key sits exactly one level below prefix.
// Object listings return every key under a prefix transitively, so this
// filter is what turns a flat key space into a one-level directory
// listing. Both the file form (prefix+name) and the directory-marker
// form (prefix+name+"/") are direct children.
func isDirectChild(key, prefix string) bool {
	name := objectName(key)
	return key == prefix+name || key == prefix+name+"/"
}
