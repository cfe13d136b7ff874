// Package sftp implements the remotefs contract over the SFTP subsystem
// of an SSH connection.
package sftp

import (
	"errors"
	"io"
	"os"

	sftplib "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
	"github.com/m-manu/remotefs/sshconn"
)

// FS is an SFTP-backed remote filesystem. Not safe for concurrent use;
// it owns a single SSH session.
type FS struct {
	opts   *sshconn.Opts
	ssh    *ssh.Client
	sftp   *sftplib.Client
	wrkdir string
}

// NewFS returns a disconnected SFTP filesystem for the given endpoint.
func NewFS(opts *sshconn.Opts) *FS {
	return &FS{opts: opts, wrkdir: "/"}
}

// Connect dials, authenticates and opens the SFTP subsystem. Connecting
// an already-connected client fails with ErrAlreadyConnected.
func (s *FS) Connect() (remotefs.Welcome, error) {
	if s.IsConnected() {
		return remotefs.Welcome{}, remotefs.NewError(remotefs.ErrAlreadyConnected)
	}
	client, banner, err := sshconn.Dial(s.opts)
	if err != nil {
		return remotefs.Welcome{}, err
	}
	sc, err := sftplib.NewClient(client)
	if err != nil {
		_ = client.Close()
		return remotefs.Welcome{}, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	s.ssh = client
	s.sftp = sc
	if wd, err := sc.Getwd(); err == nil && wd != "" {
		s.wrkdir = pathutil.Resolve("/", wd)
	} else {
		s.wrkdir = "/"
	}
	return remotefs.Welcome{Banner: banner}, nil
}

func (s *FS) Disconnect() error {
	if !s.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	err := s.sftp.Close()
	_ = s.ssh.Close()
	s.sftp = nil
	s.ssh = nil
	if err != nil {
		return remotefs.WrapError(remotefs.ErrConnectionError, err)
	}
	return nil
}

func (s *FS) IsConnected() bool {
	return s.sftp != nil
}

func (s *FS) check() error {
	if !s.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	return nil
}

func (s *FS) Pwd() (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	return s.wrkdir, nil
}

func (s *FS) ChangeDir(dir string) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	abs := pathutil.Resolve(s.wrkdir, dir)
	fi, err := s.sftp.Stat(abs)
	if err != nil {
		return "", mapError(remotefs.ErrStatFailed, err)
	}
	if !fi.IsDir() {
		return "", remotefs.WrapErrorMessage(remotefs.ErrBadFile, abs+" is not a directory")
	}
	prev := s.wrkdir
	s.wrkdir = abs
	return prev, nil
}

func (s *FS) ListDir(p string) ([]remotefs.Entry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	infos, err := s.sftp.ReadDir(abs)
	if err != nil {
		return nil, mapError(remotefs.ErrStatFailed, err)
	}
	entries := make([]remotefs.Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, s.translate(pathutil.Resolve(abs, fi.Name()), fi))
	}
	return entries, nil
}

func (s *FS) Stat(p string) (remotefs.Entry, error) {
	if err := s.check(); err != nil {
		return remotefs.Entry{}, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	fi, err := s.sftp.Lstat(abs)
	if err != nil {
		return remotefs.Entry{}, mapError(remotefs.ErrNoSuchFileOrDirectory, err)
	}
	return s.translate(abs, fi), nil
}

func (s *FS) SetStat(p string, metadata remotefs.Metadata) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	current, err := s.sftp.Lstat(abs)
	if err != nil {
		return mapError(remotefs.ErrNoSuchFileOrDirectory, err)
	}
	if metadata.Mode != nil {
		if err := s.sftp.Chmod(abs, os.FileMode(metadata.Mode.Mode())); err != nil {
			return mapError(remotefs.ErrStatFailed, err)
		}
	}
	if metadata.UID != nil || metadata.GID != nil {
		uid, gid := currentOwnership(current)
		if metadata.UID != nil {
			uid = int(*metadata.UID)
		}
		if metadata.GID != nil {
			gid = int(*metadata.GID)
		}
		if err := s.sftp.Chown(abs, uid, gid); err != nil {
			return mapError(remotefs.ErrStatFailed, err)
		}
	}
	if !metadata.Modified.IsZero() {
		atime := metadata.Accessed
		if atime.IsZero() {
			atime = metadata.Modified
		}
		if err := s.sftp.Chtimes(abs, atime, metadata.Modified); err != nil {
			return mapError(remotefs.ErrStatFailed, err)
		}
	}
	return nil
}

func currentOwnership(fi os.FileInfo) (int, int) {
	if st, ok := fi.Sys().(*sftplib.FileStat); ok {
		return int(st.UID), int(st.GID)
	}
	return 0, 0
}

func (s *FS) Exists(p string) (bool, error) {
	_, err := s.Stat(p)
	if err != nil {
		if errors.Is(err, remotefs.ErrNoSuchFileOrDirectory) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FS) RemoveFile(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if err := s.sftp.Remove(abs); err != nil {
		return mapError(remotefs.ErrCouldNotRemoveFile, err)
	}
	return nil
}

func (s *FS) RemoveDir(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if err := s.sftp.RemoveDirectory(abs); err != nil {
		return mapError(remotefs.ErrDirectoryNotEmpty, err)
	}
	return nil
}

func (s *FS) RemoveDirAll(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.RemoveDirAll(s, p)
}

func (s *FS) CreateDir(p string, mode remotefs.UnixPex) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if exists, err := s.Exists(abs); err != nil {
		return err
	} else if exists {
		return remotefs.WrapErrorMessage(remotefs.ErrDirectoryAlreadyExists, abs)
	}
	if err := s.sftp.Mkdir(abs); err != nil {
		return mapError(remotefs.ErrFileCreateDenied, err)
	}
	if err := s.sftp.Chmod(abs, os.FileMode(mode.Mode())); err != nil {
		return mapError(remotefs.ErrStatFailed, err)
	}
	return nil
}

func (s *FS) Symlink(p, target string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	targetAbs := pathutil.Resolve(s.wrkdir, target)
	if err := s.sftp.Symlink(targetAbs, abs); err != nil {
		return mapError(remotefs.ErrFileCreateDenied, err)
	}
	return nil
}

// Copy is not part of the SFTP protocol.
func (s *FS) Copy(src, dest string) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

func (s *FS) Move(src, dest string) error {
	if err := s.check(); err != nil {
		return err
	}
	srcAbs := pathutil.Resolve(s.wrkdir, src)
	destAbs := pathutil.Resolve(s.wrkdir, dest)
	if err := s.sftp.Rename(srcAbs, destAbs); err != nil {
		return mapError(remotefs.ErrNoSuchFileOrDirectory, err)
	}
	return nil
}

// Exec runs cmd in a shell on the SSH connection underneath the SFTP
// subsystem.
func (s *FS) Exec(cmd string) (uint32, string, error) {
	if err := s.check(); err != nil {
		return 0, "", err
	}
	return sshconn.Run(s.ssh, cmd)
}

func (s *FS) Create(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	return s.openWrite(p, metadata, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func (s *FS) Append(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	return s.openWrite(p, metadata, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func (s *FS) openWrite(p string, metadata remotefs.Metadata, flags int) (remotefs.WriteStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	f, err := s.sftp.OpenFile(abs, flags)
	if err != nil {
		return nil, mapError(remotefs.ErrFileCreateDenied, err)
	}
	if metadata.Mode != nil {
		if err := s.sftp.Chmod(abs, os.FileMode(metadata.Mode.Mode())); err != nil {
			_ = f.Close()
			return nil, mapError(remotefs.ErrStatFailed, err)
		}
	}
	return f, nil
}

func (s *FS) Open(p string) (remotefs.ReadStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	f, err := s.sftp.Open(abs)
	if err != nil {
		return nil, mapError(remotefs.ErrCouldNotOpenFile, err)
	}
	return f, nil
}

func (s *FS) CreateFile(p string, metadata remotefs.Metadata, reader io.Reader) (int64, error) {
	return remotefs.CreateFile(s, p, metadata, reader)
}

func (s *FS) AppendFile(p string, metadata remotefs.Metadata, reader io.Reader) (int64, error) {
	return remotefs.AppendFile(s, p, metadata, reader)
}

func (s *FS) OpenFile(p string, dest io.Writer) (int64, error) {
	return remotefs.OpenFile(s, p, dest)
}

func (s *FS) Find(pattern string) ([]remotefs.Entry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return remotefs.Find(s, pattern)
}

// mapError classifies an sftp library error, falling back to kind when
// the status code carries no better signal.
func mapError(kind error, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist) || errors.Is(err, sftplib.ErrSSHFxNoSuchFile):
		return remotefs.WrapError(remotefs.ErrNoSuchFileOrDirectory, err)
	case errors.Is(err, os.ErrPermission) || errors.Is(err, sftplib.ErrSSHFxPermissionDenied):
		return remotefs.WrapError(remotefs.ErrPexError, err)
	default:
		return remotefs.WrapError(kind, err)
	}
}

var _ remotefs.FileSystem = (*FS)(nil)
