// Package ftp implements the remotefs contract over FTP and FTPS.
// Directory listings are parsed by the client library; the protocol
// exposes no ownership or permission metadata, and transfers commit on
// data-channel shutdown, which happens in the streams' Close.
package ftp

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"strings"
	"time"

	ftplib "github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
)

const defaultPort = 21

// Opts collects the parameters for one FTP endpoint. Setters return the
// receiver so options chain.
type Opts struct {
	Host     string
	Port     int
	User     string
	Password string
	// Secure upgrades the control connection with explicit TLS (FTPS).
	Secure bool
	// SkipTLSVerify accepts invalid certificates and hostnames. Only
	// meaningful together with Secure.
	SkipTLSVerify bool
	Timeout       time.Duration
}

// NewOpts returns options for host with everything else defaulted
// (port 21, anonymous login, plain FTP, 30s dial timeout).
func NewOpts(host string) *Opts {
	return &Opts{Host: host}
}

// WithPort sets an explicit port.
func (o *Opts) WithPort(port int) *Opts { o.Port = port; return o }

// WithCredentials sets the login user and password.
func (o *Opts) WithCredentials(user, password string) *Opts {
	o.User = user
	o.Password = password
	return o
}

// WithSecure enables FTPS; skipVerify relaxes certificate and hostname
// checks for servers with self-signed certificates.
func (o *Opts) WithSecure(skipVerify bool) *Opts {
	o.Secure = true
	o.SkipTLSVerify = skipVerify
	return o
}

// WithTimeout overrides the dial timeout.
func (o *Opts) WithTimeout(d time.Duration) *Opts { o.Timeout = d; return o }

// FS is an FTP/FTPS-backed remote filesystem. Not safe for concurrent
// use; it owns a single control connection.
type FS struct {
	opts   *Opts
	conn   *ftplib.ServerConn
	wrkdir string
}

// NewFS returns a disconnected FTP filesystem for the given endpoint.
func NewFS(opts *Opts) *FS {
	return &FS{opts: opts, wrkdir: "/"}
}

// Connect dials the control connection, logs in (anonymous when no user
// is set) and syncs the working directory with the server.
func (f *FS) Connect() (remotefs.Welcome, error) {
	if f.IsConnected() {
		return remotefs.Welcome{}, remotefs.NewError(remotefs.ErrAlreadyConnected)
	}
	port := f.opts.Port
	if port == 0 {
		port = defaultPort
	}
	timeout := f.opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	addr := net.JoinHostPort(f.opts.Host, strconv.Itoa(port))
	dialOpts := []ftplib.DialOption{ftplib.DialWithTimeout(timeout)}
	if f.opts.Secure {
		dialOpts = append(dialOpts, ftplib.DialWithExplicitTLS(&tls.Config{
			ServerName:         f.opts.Host,
			InsecureSkipVerify: f.opts.SkipTLSVerify,
		}))
	}
	conn, err := ftplib.Dial(addr, dialOpts...)
	if err != nil {
		if f.opts.Secure && isTLSError(err) {
			return remotefs.Welcome{}, remotefs.WrapError(remotefs.ErrSslError, err)
		}
		return remotefs.Welcome{}, remotefs.WrapError(remotefs.ErrConnectionError, err)
	}
	user, password := f.opts.User, f.opts.Password
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	if err := conn.Login(user, password); err != nil {
		_ = conn.Quit()
		return remotefs.Welcome{}, remotefs.WrapError(remotefs.ErrAuthenticationFailed, err)
	}
	f.conn = conn
	if wd, err := conn.CurrentDir(); err == nil && wd != "" {
		f.wrkdir = pathutil.Resolve("/", wd)
	} else {
		f.wrkdir = "/"
	}
	logrus.WithField("protocol", "ftp").Debugf("connected to %s; working directory %s", addr, f.wrkdir)
	return remotefs.Welcome{}, nil
}

func isTLSError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "tls") || strings.Contains(msg, "x509") ||
		strings.Contains(msg, "certificate")
}

func (f *FS) Disconnect() error {
	if !f.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	err := f.conn.Quit()
	f.conn = nil
	if err != nil {
		return remotefs.WrapError(remotefs.ErrConnectionError, err)
	}
	return nil
}

func (f *FS) IsConnected() bool {
	return f.conn != nil
}

func (f *FS) check() error {
	if !f.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	return nil
}

func (f *FS) Pwd() (string, error) {
	if err := f.check(); err != nil {
		return "", err
	}
	return f.wrkdir, nil
}

func (f *FS) ChangeDir(dir string) (string, error) {
	if err := f.check(); err != nil {
		return "", err
	}
	abs := pathutil.Resolve(f.wrkdir, dir)
	if err := f.conn.ChangeDir(abs); err != nil {
		return "", mapError(remotefs.ErrNoSuchFileOrDirectory, err)
	}
	prev := f.wrkdir
	f.wrkdir = abs
	return prev, nil
}

func (f *FS) ListDir(p string) ([]remotefs.Entry, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	records, err := f.conn.List(abs)
	if err != nil {
		return nil, mapError(remotefs.ErrStatFailed, err)
	}
	entries := make([]remotefs.Entry, 0, len(records))
	for _, record := range records {
		if entry, ok := translate(abs, record); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Stat has no dedicated protocol command: the parent directory is listed
// and scanned for the path. The root itself is synthesized, since it has
// no parent to list.
func (f *FS) Stat(p string) (remotefs.Entry, error) {
	if err := f.check(); err != nil {
		return remotefs.Entry{}, err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	if abs == "/" {
		return remotefs.NewEntry("/", remotefs.Metadata{Type: remotefs.TypeDirectory}), nil
	}
	entries, err := f.ListDir(path.Dir(abs))
	if err != nil {
		return remotefs.Entry{}, err
	}
	for _, entry := range entries {
		if entry.Path == abs {
			return entry, nil
		}
	}
	return remotefs.Entry{}, remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
}

// SetStat is not expressible in FTP.
func (f *FS) SetStat(p string, metadata remotefs.Metadata) error {
	if err := f.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

func (f *FS) Exists(p string) (bool, error) {
	_, err := f.Stat(p)
	if err != nil {
		if errors.Is(err, remotefs.ErrNoSuchFileOrDirectory) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *FS) RemoveFile(p string) error {
	if err := f.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	if err := f.conn.Delete(abs); err != nil {
		return mapError(remotefs.ErrCouldNotRemoveFile, err)
	}
	return nil
}

func (f *FS) RemoveDir(p string) error {
	if err := f.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	if err := f.conn.RemoveDir(abs); err != nil {
		return mapError(remotefs.ErrDirectoryNotEmpty, err)
	}
	return nil
}

func (f *FS) RemoveDirAll(p string) error {
	if err := f.check(); err != nil {
		return err
	}
	return remotefs.RemoveDirAll(f, p)
}

func (f *FS) CreateDir(p string, mode remotefs.UnixPex) error {
	if err := f.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	if exists, err := f.Exists(abs); err != nil {
		return err
	} else if exists {
		return remotefs.WrapErrorMessage(remotefs.ErrDirectoryAlreadyExists, abs)
	}
	if err := f.conn.MakeDir(abs); err != nil {
		// 550 from a mkdir race still means the directory is there.
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == ftplib.StatusFileUnavailable {
			return remotefs.WrapErrorMessage(remotefs.ErrDirectoryAlreadyExists, abs)
		}
		return mapError(remotefs.ErrFileCreateDenied, err)
	}
	return nil
}

// Symlink is not expressible in FTP.
func (f *FS) Symlink(p, target string) error {
	if err := f.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

// Copy is not expressible in FTP.
func (f *FS) Copy(src, dest string) error {
	if err := f.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

func (f *FS) Move(src, dest string) error {
	if err := f.check(); err != nil {
		return err
	}
	srcAbs := pathutil.Resolve(f.wrkdir, src)
	destAbs := pathutil.Resolve(f.wrkdir, dest)
	if err := f.conn.Rename(srcAbs, destAbs); err != nil {
		return mapError(remotefs.ErrNoSuchFileOrDirectory, err)
	}
	return nil
}

// Exec is not expressible in FTP.
func (f *FS) Exec(cmd string) (uint32, string, error) {
	if err := f.check(); err != nil {
		return 0, "", err
	}
	return 0, "", remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

// Create opens an upload stream. The STOR transfer runs on a pipe; it is
// only committed when the returned stream is closed.
func (f *FS) Create(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	return newStorStream(func(r io.Reader) error {
		return f.conn.Stor(abs, r)
	}), nil
}

// Append opens an upload stream positioned at the file's current end,
// using REST with the reported size.
func (f *FS) Append(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	offset := uint64(0)
	if size, err := f.conn.FileSize(abs); err == nil && size > 0 {
		offset = uint64(size)
	}
	return newStorStream(func(r io.Reader) error {
		return f.conn.StorFrom(abs, r, offset)
	}), nil
}

func (f *FS) Open(p string) (remotefs.ReadStream, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(f.wrkdir, p)
	resp, err := f.conn.Retr(abs)
	if err != nil {
		return nil, mapError(remotefs.ErrCouldNotOpenFile, err)
	}
	return &retrStream{resp: resp}, nil
}

func (f *FS) CreateFile(p string, metadata remotefs.Metadata, reader io.Reader) (int64, error) {
	return remotefs.CreateFile(f, p, metadata, reader)
}

func (f *FS) AppendFile(p string, metadata remotefs.Metadata, reader io.Reader) (int64, error) {
	return remotefs.AppendFile(f, p, metadata, reader)
}

func (f *FS) OpenFile(p string, dest io.Writer) (int64, error) {
	return remotefs.OpenFile(f, p, dest)
}

func (f *FS) Find(pattern string) ([]remotefs.Entry, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return remotefs.Find(f, pattern)
}

// mapError classifies an FTP reply, falling back to kind when the reply
// code carries no better signal.
func mapError(kind error, err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case ftplib.StatusFileUnavailable, ftplib.StatusFileActionIgnored:
			return remotefs.WrapError(kind, err)
		case ftplib.StatusNotLoggedIn:
			return remotefs.WrapError(remotefs.ErrAuthenticationFailed, err)
		}
	}
	return remotefs.WrapError(kind, err)
}

var _ remotefs.FileSystem = (*FS)(nil)
