package sftp

import (
	"os"
	"path"
	"time"

	sftplib "github.com/pkg/sftp"
	"github.com/sirupsen/logrus"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
)

// translate converts a stat result for absPath into the common entry
// model. Symlink targets need one extra round-trip; a dangling link
// degrades to an entry with no target rather than failing the listing.
func (s *FS) translate(absPath string, fi os.FileInfo) remotefs.Entry {
	md := remotefs.Metadata{
		Size: uint64(fi.Size()),
		Type: fileTypeOf(fi),
	}
	if st, ok := fi.Sys().(*sftplib.FileStat); ok {
		uid, gid := st.UID, st.GID
		md.UID = &uid
		md.GID = &gid
		mode := remotefs.UnixPexFromMode(st.Mode & 0o777)
		md.Mode = &mode
		md.Accessed = time.Unix(int64(st.Atime), 0)
		md.Modified = time.Unix(int64(st.Mtime), 0)
	} else {
		md.Modified = fi.ModTime()
	}
	if md.Type == remotefs.TypeSymlink {
		target, err := s.sftp.ReadLink(absPath)
		if err != nil {
			logrus.WithField("protocol", "sftp").Debugf("cannot read link target of %q: %v", absPath, err)
		} else {
			// Relative targets are rooted at the link's own directory.
			md.Symlink = pathutil.Resolve(path.Dir(absPath), target)
		}
	}
	entry := remotefs.NewEntry(absPath, md)
	entry.Name = pathutil.Name(absPath)
	return entry
}

func fileTypeOf(fi os.FileInfo) remotefs.FileType {
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		return remotefs.TypeSymlink
	case fi.IsDir():
		return remotefs.TypeDirectory
	default:
		return remotefs.TypeFile
	}
}
