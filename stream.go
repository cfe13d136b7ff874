package remotefs

import "io"

// ReadStream is a remote file opened for reading. Callers must Close it
// even after reading to EOF: on some protocols the transfer is only
// acknowledged on the data channel shutdown, and Close surfaces that
// acknowledgement.
type ReadStream interface {
	io.ReadCloser
}

// WriteStream is a remote file opened for writing. The write is not
// durable until Close returns nil: protocols that commit on data channel
// shutdown (FTP, S3 multipart) finalize the transfer inside Close.
type WriteStream interface {
	io.WriteCloser
}

// Welcome is the server greeting captured while connecting. Banner is
// empty when the protocol has no greeting (e.g. S3).
type Welcome struct {
	Banner string
}
