package ftp

import (
	"io"

	ftplib "github.com/jlaffaye/ftp"

	"github.com/m-manu/remotefs"
)

// storStream feeds an upload through a pipe into a blocking STOR (or
// REST+STOR) call running in its own goroutine. Close shuts the pipe and
// waits for the server to acknowledge the transfer; only then is the
// remote file complete.
type storStream struct {
	pw   *io.PipeWriter
	done chan error
}

func newStorStream(stor func(io.Reader) error) *storStream {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := stor(pr)
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return &storStream{pw: pw, done: done}
}

func (s *storStream) Write(p []byte) (int, error) {
	n, err := s.pw.Write(p)
	if err != nil {
		return n, remotefs.WrapError(remotefs.ErrIoError, err)
	}
	return n, nil
}

func (s *storStream) Close() error {
	_ = s.pw.Close()
	if err := <-s.done; err != nil {
		return mapError(remotefs.ErrFileCreateDenied, err)
	}
	return nil
}

// retrStream wraps a RETR response. Close drains the data channel and
// waits for the final transfer reply.
type retrStream struct {
	resp *ftplib.Response
}

func (r *retrStream) Read(p []byte) (int, error) {
	n, err := r.resp.Read(p)
	if err != nil && err != io.EOF {
		return n, remotefs.WrapError(remotefs.ErrIoError, err)
	}
	return n, err
}

func (r *retrStream) Close() error {
	if err := r.resp.Close(); err != nil {
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	return nil
}
