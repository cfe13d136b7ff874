// Package sshconn establishes SSH sessions for the sftp and scp clients:
// option resolution against ssh config files, TCP dial with retry
// attempts, authentication, banner capture and remote command execution.
package sshconn

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kevinburke/ssh_config"
)

const (
	defaultPort           = 22
	defaultConnectTimeout = 30 * time.Second
	defaultAttempts       = 1
)

// Opts collects the parameters for one SSH endpoint. Zero fields fall
// back to the ssh config file (when given) and then to built-in
// defaults. Setters return the receiver so options chain.
type Opts struct {
	Host     string
	Port     int
	User     string
	Password string
	// KeyFile is a path to a PEM private key; it takes precedence over
	// password auth. KeyPassphrase decrypts it when set.
	KeyFile       string
	KeyPassphrase string
	// ConfigFile points at an OpenSSH-style config file consulted for
	// host aliases, port, user, identity file and timeouts.
	ConfigFile     string
	ConnectTimeout time.Duration
	Attempts       int
	// Algorithm preferences; empty slices keep the library defaults.
	KeyExchanges      []string
	Ciphers           []string
	HostKeyAlgorithms []string
}

// NewOpts returns options for host with everything else defaulted.
func NewOpts(host string) *Opts {
	return &Opts{Host: host}
}

// WithPort sets an explicit port.
func (o *Opts) WithPort(port int) *Opts { o.Port = port; return o }

// WithUser sets the login user.
func (o *Opts) WithUser(user string) *Opts { o.User = user; return o }

// WithPassword sets password authentication.
func (o *Opts) WithPassword(password string) *Opts { o.Password = password; return o }

// WithKeyFile sets private key authentication.
func (o *Opts) WithKeyFile(path, passphrase string) *Opts {
	o.KeyFile = path
	o.KeyPassphrase = passphrase
	return o
}

// WithConfigFile points the options at an ssh config file.
func (o *Opts) WithConfigFile(path string) *Opts { o.ConfigFile = path; return o }

// WithConnectTimeout overrides the 30s default dial timeout.
func (o *Opts) WithConnectTimeout(d time.Duration) *Opts { o.ConnectTimeout = d; return o }

// WithAttempts sets how many times the dial is tried before giving up.
func (o *Opts) WithAttempts(n int) *Opts { o.Attempts = n; return o }

// resolved is an Opts with the config file and defaults applied: every
// field is usable as-is.
type resolved struct {
	host              string
	port              int
	user              string
	password          string
	keyFile           string
	keyPassphrase     string
	connectTimeout    time.Duration
	attempts          int
	keyExchanges      []string
	ciphers           []string
	hostKeyAlgorithms []string
}

// resolve applies precedence explicit option > config file value >
// default. The original Host acts as the lookup alias; the config file
// may rewrite it via HostName.
func (o *Opts) resolve() (resolved, error) {
	r := resolved{
		host:              o.Host,
		port:              o.Port,
		user:              o.User,
		password:          o.Password,
		keyFile:           o.KeyFile,
		keyPassphrase:     o.KeyPassphrase,
		connectTimeout:    o.ConnectTimeout,
		attempts:          o.Attempts,
		keyExchanges:      o.KeyExchanges,
		ciphers:           o.Ciphers,
		hostKeyAlgorithms: o.HostKeyAlgorithms,
	}
	if o.ConfigFile != "" {
		f, err := os.Open(o.ConfigFile)
		if err != nil {
			return resolved{}, fmt.Errorf("cannot open ssh config %q: %w", o.ConfigFile, err)
		}
		defer f.Close()
		cfg, err := ssh_config.Decode(f)
		if err != nil {
			return resolved{}, fmt.Errorf("cannot parse ssh config %q: %w", o.ConfigFile, err)
		}
		alias := o.Host
		if v, _ := cfg.Get(alias, "HostName"); v != "" {
			r.host = v
		}
		if r.port == 0 {
			if v, _ := cfg.Get(alias, "Port"); v != "" {
				if p, err := strconv.Atoi(v); err == nil {
					r.port = p
				}
			}
		}
		if r.user == "" {
			if v, _ := cfg.Get(alias, "User"); v != "" {
				r.user = v
			}
		}
		if r.keyFile == "" {
			if v, _ := cfg.Get(alias, "IdentityFile"); v != "" {
				r.keyFile = v
			}
		}
		if r.connectTimeout == 0 {
			if v, _ := cfg.Get(alias, "ConnectTimeout"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil {
					r.connectTimeout = time.Duration(secs) * time.Second
				}
			}
		}
		if r.attempts == 0 {
			if v, _ := cfg.Get(alias, "ConnectionAttempts"); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					r.attempts = n
				}
			}
		}
	}
	if r.port == 0 {
		r.port = defaultPort
	}
	if r.connectTimeout == 0 {
		r.connectTimeout = defaultConnectTimeout
	}
	if r.attempts == 0 {
		r.attempts = defaultAttempts
	}
	return r, nil
}
