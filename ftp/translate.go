package ftp

import (
	ftplib "github.com/jlaffaye/ftp"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
)

// translate converts a parsed LIST record into the common entry model.
// FTP listings carry no ownership or permission bits, so UID, GID and
// Mode stay nil. Dot entries yield ok=false.
func translate(dir string, e *ftplib.Entry) (remotefs.Entry, bool) {
	if e.Name == "." || e.Name == ".." {
		return remotefs.Entry{}, false
	}
	var fileType remotefs.FileType
	switch e.Type {
	case ftplib.EntryTypeFolder:
		fileType = remotefs.TypeDirectory
	case ftplib.EntryTypeLink:
		fileType = remotefs.TypeSymlink
	default:
		fileType = remotefs.TypeFile
	}
	abs := pathutil.Resolve(dir, e.Name)
	md := remotefs.Metadata{
		Modified: e.Time,
		Size:     e.Size,
		Type:     fileType,
	}
	if fileType == remotefs.TypeSymlink && e.Target != "" {
		md.Symlink = pathutil.Resolve(dir, e.Target)
	}
	return remotefs.NewEntry(abs, md), true
}
