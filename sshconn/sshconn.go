package sshconn

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/m-manu/remotefs"
)

// Dial resolves opts, connects and authenticates. It returns the live
// client together with any banner the server sent before auth.
func Dial(opts *Opts) (*ssh.Client, string, error) {
	r, err := opts.resolve()
	if err != nil {
		return nil, "", remotefs.WrapError(remotefs.ErrBadAddress, err)
	}
	if r.host == "" {
		return nil, "", remotefs.WrapErrorMessage(remotefs.ErrBadAddress, "empty host")
	}

	var banner string
	cfg := &ssh.ClientConfig{
		Config: ssh.Config{
			KeyExchanges: r.keyExchanges,
			Ciphers:      r.ciphers,
		},
		User:              r.user,
		Auth:              authMethods(r),
		HostKeyAlgorithms: r.hostKeyAlgorithms,
		HostKeyCallback:   ssh.InsecureIgnoreHostKey(),
		Timeout:           r.connectTimeout,
		BannerCallback: func(message string) error {
			banner = strings.TrimRight(message, "\r\n")
			return nil
		},
	}

	addr := net.JoinHostPort(r.host, strconv.Itoa(r.port))
	var client *ssh.Client
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		client, lastErr = dialOnce(addr, cfg)
		if lastErr == nil {
			return client, banner, nil
		}
		logrus.WithField("protocol", "ssh").Debugf("dial %s attempt %d/%d failed: %v",
			addr, attempt+1, r.attempts, lastErr)
	}
	if strings.Contains(lastErr.Error(), "unable to authenticate") ||
		strings.Contains(lastErr.Error(), "no supported methods remain") {
		return nil, "", remotefs.WrapError(remotefs.ErrAuthenticationFailed, lastErr)
	}
	return nil, "", remotefs.WrapError(remotefs.ErrConnectionError, lastErr)
}

func dialOnce(addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := net.DialTimeout("tcp", addr, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// authMethods assembles the methods in precedence order: key file, then
// ssh-agent, then password.
func authMethods(r resolved) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if r.keyFile != "" {
		if signer, err := loadKey(r.keyFile, r.keyPassphrase); err == nil {
			methods = append(methods, ssh.PublicKeys(signer))
		} else {
			logrus.WithField("protocol", "ssh").Debugf("cannot load key %q: %v", r.keyFile, err)
		}
	}
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}
	if r.password != "" {
		methods = append(methods, ssh.Password(r.password))
	}
	if len(methods) == 0 {
		methods = append(methods, ssh.Password(""))
	}
	return methods
}

func loadKey(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(pem)
}

// Run executes cmd in a fresh session and returns its exit code with the
// combined stdout+stderr output. A non-zero exit status is not an error
// here; callers decide what each code means.
func Run(client *ssh.Client, cmd string) (uint32, string, error) {
	session, err := client.NewSession()
	if err != nil {
		return 0, "", remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	defer session.Close()
	out, err := session.CombinedOutput(cmd)
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return uint32(exitErr.ExitStatus()), string(out), nil
		}
		return 0, string(out), remotefs.WrapError(remotefs.ErrProtocolError, err)
	}
	return 0, string(out), nil
}
