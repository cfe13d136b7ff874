// Package s3 implements the remotefs contract over an S3 bucket. The
// bucket's flat key space is presented as a hierarchy via the
// trailing-slash directory-marker convention; see object.go for the key
// translation rules.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/m-manu/remotefs"
	"github.com/m-manu/remotefs/pathutil"
)

// Opts collects the parameters for one bucket. Credentials resolution
// precedence: explicit static keys > named profile > the SDK's default
// chain (environment, shared config, instance metadata). Setters return
// the receiver so options chain.
type Opts struct {
	Bucket  string
	Region  string
	Profile string
	// Endpoint overrides the AWS endpoint, for S3-compatible object
	// stores; path-style addressing is switched on with it.
	Endpoint      string
	AccessKey     string
	SecretKey     string
	SecurityToken string
}

// NewOpts returns options for bucket in region.
func NewOpts(bucket, region string) *Opts {
	return &Opts{Bucket: bucket, Region: region}
}

// WithProfile selects a shared-config profile.
func (o *Opts) WithProfile(profile string) *Opts { o.Profile = profile; return o }

// WithEndpoint points the client at an S3-compatible endpoint.
func (o *Opts) WithEndpoint(endpoint string) *Opts { o.Endpoint = endpoint; return o }

// WithStaticCredentials sets explicit keys, bypassing profile and
// environment lookup. token may be empty.
func (o *Opts) WithStaticCredentials(accessKey, secretKey, token string) *Opts {
	o.AccessKey = accessKey
	o.SecretKey = secretKey
	o.SecurityToken = token
	return o
}

// FS is an S3-backed remote filesystem. Not safe for concurrent use.
type FS struct {
	opts   *Opts
	client *awss3.Client
	wrkdir string
}

// NewFS returns a disconnected S3 filesystem for the given bucket.
func NewFS(opts *Opts) *FS {
	return &FS{opts: opts, wrkdir: "/"}
}

// Connect builds the client from the resolved credentials and verifies
// the bucket is reachable.
func (s *FS) Connect() (remotefs.Welcome, error) {
	if s.IsConnected() {
		return remotefs.Welcome{}, remotefs.NewError(remotefs.ErrAlreadyConnected)
	}
	ctx := context.Background()
	var loadOpts []func(*awsconfig.LoadOptions) error
	if s.opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s.opts.Region))
	}
	if s.opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(s.opts.Profile))
	}
	if s.opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.opts.AccessKey, s.opts.SecretKey, s.opts.SecurityToken),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return remotefs.Welcome{}, remotefs.WrapError(remotefs.ErrAuthenticationFailed, err)
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if s.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	if _, err := client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.opts.Bucket)}); err != nil {
		return remotefs.Welcome{}, remotefs.WrapError(remotefs.ErrConnectionError, err)
	}
	s.client = client
	s.wrkdir = "/"
	logrus.WithField("protocol", "s3").Debugf("connected to bucket %s", s.opts.Bucket)
	return remotefs.Welcome{}, nil
}

// Disconnect drops the client. S3 is connectionless, so there is nothing
// to tear down on the wire.
func (s *FS) Disconnect() error {
	if !s.IsConnected() {
		return remotefs.NewError(remotefs.ErrNotConnected)
	}
	s.client = nil
	return nil
}

func (s *FS) IsConnected() bool {
	return s.client != nil
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
	entry, err := s.Stat(abs)
	if err != nil {
		return "", err
	}
	if !entry.IsDir() {
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
	prefix := pathutil.FmtPath(abs, true)
	var entries []remotefs.Entry
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, remotefs.WrapError(remotefs.ErrStatFailed, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix || !isDirectChild(key, prefix) {
				continue
			}
			entries = append(entries, entryFromKey(key, aws.ToInt64(obj.Size), obj.LastModified))
		}
	}
	return entries, nil
}

// Stat resolves a path with no trailing-slash hint by trying the file
// key first and the directory-marker prefix second.
func (s *FS) Stat(p string) (remotefs.Entry, error) {
	if err := s.check(); err != nil {
		return remotefs.Entry{}, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	if abs == "/" {
		return remotefs.NewEntry("/", remotefs.Metadata{Type: remotefs.TypeDirectory}), nil
	}
	fileKey := pathutil.FmtPath(abs, false)
	head, err := s.client.HeadObject(context.Background(), &awss3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(fileKey),
	})
	if err == nil {
		return entryFromKey(fileKey, aws.ToInt64(head.ContentLength), head.LastModified), nil
	}
	if !isNotFound(err) {
		return remotefs.Entry{}, remotefs.WrapError(remotefs.ErrStatFailed, err)
	}
	// Directory form: any key under the prefix means the directory
	// exists, marker object or not.
	dirKey := pathutil.FmtPath(abs, true)
	list, err := s.client.ListObjectsV2(context.Background(), &awss3.ListObjectsV2Input{
		Bucket:  aws.String(s.opts.Bucket),
		Prefix:  aws.String(dirKey),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return remotefs.Entry{}, remotefs.WrapError(remotefs.ErrStatFailed, err)
	}
	if len(list.Contents) == 0 {
		return remotefs.Entry{}, remotefs.WrapErrorMessage(remotefs.ErrNoSuchFileOrDirectory, abs)
	}
	return entryFromKey(dirKey, 0, nil), nil
}

// SetStat is not expressible on object storage.
func (s *FS) SetStat(p string, metadata remotefs.Metadata) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
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
	entry, err := s.Stat(abs)
	if err != nil {
		return err
	}
	key := pathutil.FmtPath(abs, entry.IsDir())
	if _, err := s.client.DeleteObject(context.Background(), &awss3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return remotefs.WrapError(remotefs.ErrCouldNotRemoveFile, err)
	}
	return nil
}

func (s *FS) RemoveDir(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	children, err := s.ListDir(abs)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return remotefs.WrapErrorMessage(remotefs.ErrDirectoryNotEmpty, abs)
	}
	if _, err := s.client.DeleteObject(context.Background(), &awss3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(pathutil.FmtPath(abs, true)),
	}); err != nil {
		return remotefs.WrapError(remotefs.ErrCouldNotRemoveFile, err)
	}
	return nil
}

func (s *FS) RemoveDirAll(p string) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.RemoveDirAll(s, p)
}

// CreateDir writes a zero-byte directory-marker object.
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
	if _, err := s.client.PutObject(context.Background(), &awss3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(pathutil.FmtPath(abs, true)),
		Body:   bytes.NewReader(nil),
	}); err != nil {
		return remotefs.WrapError(remotefs.ErrFileCreateDenied, err)
	}
	return nil
}

// Symlink is not expressible on object storage.
func (s *FS) Symlink(p, target string) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

// Copy is not supported.
func (s *FS) Copy(src, dest string) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

// Move is not supported; object storage has no rename.
func (s *FS) Move(src, dest string) error {
	if err := s.check(); err != nil {
		return err
	}
	return remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

// Exec is not expressible on object storage.
func (s *FS) Exec(cmd string) (uint32, string, error) {
	if err := s.check(); err != nil {
		return 0, "", err
	}
	return 0, "", remotefs.NewError(remotefs.ErrUnsupportedFeature)
}

// Create opens an upload stream backed by the SDK's multipart upload
// manager. The object only appears in the bucket once the stream is
// closed and the upload completes.
func (s *FS) Create(p string, metadata remotefs.Metadata) (remotefs.WriteStream, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	abs := pathutil.Resolve(s.wrkdir, p)
	key := pathutil.FmtPath(abs, false)
	uploader := manager.NewUploader(s.client)
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := uploader.Upload(context.Background(), &awss3.PutObjectInput{
			Bucket: aws.String(s.opts.Bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return &uploadStream{pw: pw, done: done}, nil
}

// Append is not expressible on object storage; objects are immutable.
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
	key := pathutil.FmtPath(abs, false)
	out, err := s.client.GetObject(context.Background(), &awss3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, remotefs.WrapError(remotefs.ErrNoSuchFileOrDirectory, err)
		}
		return nil, remotefs.WrapError(remotefs.ErrCouldNotOpenFile, err)
	}
	return out.Body, nil
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

// uploadStream feeds the multipart uploader through a pipe; Close waits
// for the upload to complete.
type uploadStream struct {
	pw   *io.PipeWriter
	done chan error
}

func (u *uploadStream) Write(p []byte) (int, error) {
	n, err := u.pw.Write(p)
	if err != nil {
		return n, remotefs.WrapError(remotefs.ErrIoError, err)
	}
	return n, nil
}

func (u *uploadStream) Close() error {
	_ = u.pw.Close()
	if err := <-u.done; err != nil {
		return remotefs.WrapError(remotefs.ErrFileCreateDenied, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound) ||
		strings.Contains(err.Error(), "StatusCode: 404")
}

var _ remotefs.FileSystem = (*FS)(nil)
