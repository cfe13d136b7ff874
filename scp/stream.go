package scp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/m-manu/remotefs"
)

// The SCP wire protocol frames one file as a "C<mode> <size> <name>"
// header followed by exactly size payload bytes and a zero byte, with a
// single-byte acknowledgement after each step (0 ok, 1 warning, 2 fatal).
// The size must therefore be known before the first payload byte is
// sent.

// writeStream uploads one file through `scp -t`. Close sends the
// trailing zero byte and waits for the sink to acknowledge; the file is
// not durable remotely before that.
type writeStream struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	closed  bool
}

func newWriteStream(client *ssh.Client, dir, name string, mode uint32, size uint64) (*writeStream, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	if err := session.Start(fmt.Sprintf("scp -t \"%s\"", dir)); err != nil {
		_ = session.Close()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	ws := &writeStream{session: session, stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := ws.readAck(); err != nil {
		ws.abort()
		return nil, err
	}
	if _, err := fmt.Fprintf(stdin, "C%04o %d %s\n", mode, size, name); err != nil {
		ws.abort()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	if err := ws.readAck(); err != nil {
		ws.abort()
		return nil, err
	}
	return ws, nil
}

func (ws *writeStream) Write(p []byte) (int, error) {
	n, err := ws.stdin.Write(p)
	if err != nil {
		return n, remotefs.WrapError(remotefs.ErrIoError, err)
	}
	return n, nil
}

func (ws *writeStream) Close() error {
	if ws.closed {
		return nil
	}
	ws.closed = true
	if _, err := ws.stdin.Write([]byte{0}); err != nil {
		ws.abort()
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	ackErr := ws.readAck()
	_ = ws.stdin.Close()
	_ = ws.session.Wait()
	_ = ws.session.Close()
	return ackErr
}

func (ws *writeStream) abort() {
	ws.closed = true
	_ = ws.stdin.Close()
	_ = ws.session.Close()
}

func (ws *writeStream) readAck() error {
	b, err := ws.stdout.ReadByte()
	if err != nil {
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	if b == 0 {
		return nil
	}
	msg, _ := ws.stdout.ReadString('\n')
	return remotefs.WrapErrorMessage(remotefs.ErrProtocolError, strings.TrimSpace(msg))
}

// readStream downloads one file through `scp -f`. Reads stop at the
// declared size; Close consumes the source's trailing zero byte,
// acknowledges it and releases the session.
type readStream struct {
	session   *ssh.Session
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	remaining uint64
	closed    bool
}

func newReadStream(client *ssh.Client, filePath string) (*readStream, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	if err := session.Start(fmt.Sprintf("scp -f \"%s\"", filePath)); err != nil {
		_ = session.Close()
		return nil, remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	rs := &readStream{session: session, stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := rs.handshake(); err != nil {
		rs.abort()
		return nil, err
	}
	return rs, nil
}

// handshake kicks the source and parses the file header, leaving the
// stream positioned at the first payload byte.
func (rs *readStream) handshake() error {
	if _, err := rs.stdin.Write([]byte{0}); err != nil {
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	header, err := rs.stdout.ReadString('\n')
	if err != nil {
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "C") {
		return remotefs.WrapErrorMessage(remotefs.ErrCouldNotOpenFile, header)
	}
	fields := strings.SplitN(header[1:], " ", 3)
	if len(fields) != 3 {
		return remotefs.WrapErrorMessage(remotefs.ErrProtocolError, "malformed scp header: "+header)
	}
	size, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return remotefs.WrapErrorMessage(remotefs.ErrProtocolError, "malformed scp size: "+fields[1])
	}
	rs.remaining = size
	if _, err := rs.stdin.Write([]byte{0}); err != nil {
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	return nil
}

func (rs *readStream) Read(p []byte) (int, error) {
	if rs.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > rs.remaining {
		p = p[:rs.remaining]
	}
	n, err := rs.stdout.Read(p)
	rs.remaining -= uint64(n)
	if err != nil && err != io.EOF {
		return n, remotefs.WrapError(remotefs.ErrIoError, err)
	}
	if err == io.EOF && rs.remaining > 0 {
		return n, remotefs.WrapErrorMessage(remotefs.ErrProtocolError, "scp stream ended early")
	}
	return n, nil
}

func (rs *readStream) Close() error {
	if rs.closed {
		return nil
	}
	rs.closed = true
	// Drain whatever the caller did not read plus the trailing zero.
	if _, err := io.CopyN(io.Discard, rs.stdout, int64(rs.remaining)+1); err != nil {
		rs.abort()
		return remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	_, _ = rs.stdin.Write([]byte{0})
	_ = rs.stdin.Close()
	_ = rs.session.Wait()
	_ = rs.session.Close()
	return nil
}

func (rs *readStream) abort() {
	rs.closed = true
	_ = rs.stdin.Close()
	_ = rs.session.Close()
}
