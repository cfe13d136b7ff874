// Package scp implements the remotefs contract over plain SSH shell
// commands plus the SCP wire protocol for transfers. It is the fallback
// for hosts whose SSH server has no SFTP subsystem; directory listings
// are parsed out of `ls -l` output.
package scp

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
	"github.com/m-manu/remotefs/sshconn"
)

// FS is an SCP/shell-backed remote filesystem. Not safe for concurrent
// use; it owns a single SSH session.
type FS struct {
	opts   *sshconn.Opts
	ssh    *ssh.Client
	wrkdir string
}

// NewFS returns a disconnected SCP filesystem for the given endpoint.
func NewFS(opts *sshconn.Opts) *FS {
	return &FS{opts: opts, wrkdir: "/"}
}

// Connect dials, authenticates and resolves the login shell's working
// directory. Connecting an already-connected client fails with
// ErrAlreadyConnected.
func (s *FS) Connect() (remotefs.Welcome, error) {
	if s.IsConnected() {
		return remotefs.Welcome{}, remotefs.NewError(remotefs.ErrAlreadyConnected)
	}
	client, banner, err := sshconn.Dial(s.opts)
	if err != nil {
		return remotefs.Welcome{}, err
	}
	s.ssh = client
	_, out, err := sshconn.Run(client, "pwd")
	if err != nil {
		_ = client.Close()
		s.ssh = nil
		return remotefs.Welcome{}, err
	}
	s.wrkdir = pathutil.Resolve("/", strings.TrimSpace(out))
	logrus.WithField("protocol", "scp").Debugf("connected; working directory %s", s.wrkdir)
	return remotefs.Welcome{Banner: banner}, nil
}

func (s *FS) Disconnect() error {
	if !s.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	err := s.ssh.Close()
	s.ssh = nil
	if err != nil {
		return remotefs.WrapError(remotefs.ErrConnectionError, err)
	}
	return nil
}

func (s *FS) IsConnected() bool {
	return s.ssh != nil
}

func (s *FS) check() error {
	if !s.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	return nil
}

// run executes cmd and returns its exit code with combined output.
func (s *FS) run(cmd string) (uint32, string, error) {
	return sshconn.Run(s.ssh, cmd)
}

// assertRun executes cmd and converts any non-zero exit code to kind.
func (s *FS) assertRun(cmd string, kind error) error {
	rc, out, err := s.run(cmd)
	if err != nil {
		return err
	}
	if rc != 0 {
		return remotefs.WrapErrorMessage(kind, strings.TrimSpace(out))
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
	_, out, err := s.run(fmt.Sprintf("cd \"%s\"; echo $?; pwd", abs))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "0") {
		return "", remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	prev := s.wrkdir
	s.wrkdir = pathutil.Resolve("/", strings.TrimSpace(out[1:]))
	return prev, nil
}

func (s *FS) ListDir(p string) ([]remotefs.Entry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	_, out, err := s.run(fmt.Sprintf("unset LANG; ls -la \"%s/\"", abs))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(out, "\n")
	entries := make([]remotefs.Entry, 0, len(lines))
	for _, line := range lines {
		if entry, ok := parseLsLine(abs, strings.TrimRight(line, "\r")); ok {
			entries = append(entries, entry)
		}
	}
	logrus.WithField("protocol", "scp").Debugf("parsed %d of %d listing rows in %s",
		len(entries), len(lines), abs)
	return entries, nil
}

// Stat lists the path in file form first and retries in directory form
// (`ls -ld`), since the plain form expands directories into their
// contents.
func (s *FS) Stat(p string) (remotefs.Entry, error) {
	if err := s.check(); err != nil {
		return remotefs.Entry{}, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if entry, ok := s.statWith("unset LANG; ls -l", abs); ok {
		return entry, nil
	}
	if entry, ok := s.statWith("unset LANG; ls -ld", abs); ok {
		return entry, nil
	}
	return remotefs.Entry{}, remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
}

func (s *FS) statWith(lsCmd, abs string) (remotefs.Entry, bool) {
	rc, out, err := s.run(fmt.Sprintf("%s \"%s\"", lsCmd, abs))
	if err != nil || rc != 0 {
		return remotefs.Entry{}, false
	}
	return parseLsLine(path.Dir(abs), strings.TrimSpace(out))
}

func (s *FS) SetStat(p string, metadata remotefs.Metadata) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if exists, err := s.Exists(abs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	if metadata.Mode != nil {
		cmd := fmt.Sprintf("chmod %o \"%s\"", metadata.Mode.Mode(), abs)
		if err := s.assertRun(cmd, remotefs.ErrStatFailed); err != nil {
			return err
		}
	}
	atime := fmtTouchTime(metadata.Accessed)
	if err := s.assertRun(fmt.Sprintf("touch -a -t %s \"%s\"", atime, abs), remotefs.ErrStatFailed); err != nil {
		return err
	}
	mtime := fmtTouchTime(metadata.Modified)
	return s.assertRun(fmt.Sprintf("touch -m -t %s \"%s\"", mtime, abs), remotefs.ErrStatFailed)
}

// fmtTouchTime renders t in the CCYYMMDDhhmm.SS form `touch -t` wants.
func fmtTouchTime(t time.Time) string {
	if t.IsZero() {
		t = time.Unix(0, 0)
	}
	return t.UTC().Format("200601021504.05")
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
	if exists, err := s.Exists(abs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	return s.assertRun(fmt.Sprintf("rm -f \"%s\"", abs), remotefs.ErrCouldNotRemoveFile)
}

func (s *FS) RemoveDir(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if exists, err := s.Exists(abs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	return s.assertRun(fmt.Sprintf("rmdir \"%s\"", abs), remotefs.ErrDirectoryNotEmpty)
}

// RemoveDirAll shells out to `rm -rf` instead of recursing entry by
// entry over the wire.
func (s *FS) RemoveDirAll(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if exists, err := s.Exists(abs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	return s.assertRun(fmt.Sprintf("rm -rf \"%s\"", abs), remotefs.ErrCouldNotRemoveFile)
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
	cmd := fmt.Sprintf("mkdir -m %o \"%s\"", mode.Mode(), abs)
	return s.assertRun(cmd, remotefs.ErrFileCreateDenied)
}

func (s *FS) Symlink(p, target string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	targetAbs := pathutil.Resolve(s.wrkdir, target)
	if exists, err := s.Exists(targetAbs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, targetAbs)
	}
	if exists, err := s.Exists(abs); err != nil {
		return err
	} else if exists {
		return remotefs.WrapErrorMessage(remotefs.ErrFileCreateDenied, abs)
	}
	cmd := fmt.Sprintf("ln -s \"%s\" \"%s\"", targetAbs, abs)
	return s.assertRun(cmd, remotefs.ErrFileCreateDenied)
}

func (s *FS) Copy(src, dest string) error {
	if err := s.check(); err != nil {
		return err
	}
	srcAbs := pathutil.Resolve(s.wrkdir, src)
	destAbs := pathutil.Resolve(s.wrkdir, dest)
	if exists, err := s.Exists(srcAbs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, srcAbs)
	}
	cmd := fmt.Sprintf("cp -rf \"%s\" \"%s\"", srcAbs, destAbs)
	return s.assertRun(cmd, remotefs.ErrFileCreateDenied)
}

func (s *FS) Move(src, dest string) error {
	if err := s.check(); err != nil {
		return err
	}
	srcAbs := pathutil.Resolve(s.wrkdir, src)
	destAbs := pathutil.Resolve(s.wrkdir, dest)
	if exists, err := s.Exists(srcAbs); err != nil {
		return err
	} else if !exists {
		return remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, srcAbs)
	}
	cmd := fmt.Sprintf("mv -f \"%s\" \"%s\"", srcAbs, destAbs)
	return s.assertRun(cmd, remotefs.ErrFileCreateDenied)
}

// Exec runs cmd in the remote working directory.
func (s *FS) Exec(cmd string) (uint32, string, error) {
	if err := s.check(); err != nil {
		return 0, "", err
	}
	return s.run(fmt.Sprintf("cd \"%s\"; %s", s.wrkdir, cmd))
}

// Create uploads through the SCP sink. The wire protocol declares the
// byte count before the payload, so metadata.Size must be the exact
// number of bytes the caller is going to write.
func (s *FS) Create(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	mode := uint32(0o644)
	if metadata.Mode != nil {
		mode = metadata.Mode.Mode()
	}
	return newWriteStream(s.ssh, path.Dir(abs), path.Base(abs), mode, metadata.Size)
}

// Append is not expressible in the SCP wire protocol.
func (s *FS) Append(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return nil, remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

func (s *FS) Open(p string) (remotefs.ReadStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if exists, err := s.Exists(abs); err != nil {
		return nil, err
	} else if !exists {
		return nil, remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	return newReadStream(s.ssh, abs)
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

var _ remotefs.FileSystem = (*FS)(nil)
