// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/toeirei/clusterkey/internal/sshkey"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

const (
	DefaultConnectionTimeout = 10 * time.Second
	DefaultProbeTimeout      = 5 * time.Second
	DefaultPort              = 22
)

// ConnectionConfig controls how hosts are reached.
type ConnectionConfig struct {
	User              string
	Port              int
	ConnectionTimeout time.Duration
}

// DefaultConnectionConfig returns root on port 22 with the default timeout.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{User: "root", Port: DefaultPort, ConnectionTimeout: DefaultConnectionTimeout}
}

// KnownHosts is the part of the registry holding trusted host keys.
type KnownHosts interface {
	GetKnownHostKey(ctx context.Context, hostname string) (string, error)
	AddKnownHostKey(ctx context.Context, hostname, key string) error
}

// Seams for tests.
var (
	sshDial = func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
		d := net.Dialer{Timeout: cfg.Timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return ssh.NewClient(c, chans, reqs), nil
	}
	sshAgentGetter = getSSHAgent
)

// HostKeyCallback accepts only host keys recorded in hosts. Unknown hosts
// must be trusted explicitly first.
func HostKeyCallback(ctx context.Context, hosts KnownHosts) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		host := stripPort(hostname)
		presented := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))

		known, err := hosts.GetKnownHostKey(ctx, host)
		if err != nil {
			return fmt.Errorf("failed to query known hosts: %w", err)
		}
		if known == "" {
			return fmt.Errorf("%w: %s; run 'clusterkey trust-host %s' first", ErrUnknownHost, host, host)
		}
		if !sshkey.SameKey(known, presented) {
			return fmt.Errorf("%w for %s: remote presented %s", ErrHostKeyMismatch, host, presented)
		}
		return nil
	}
}

// PassphraseFunc returns the passphrase for an encrypted private key.
type PassphraseFunc func(keyPath string) ([]byte, error)

// TerminalPassphrase prompts on the controlling terminal.
func TerminalPassphrase(keyPath string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is encrypted and stdin is not a terminal", keyPath)
	}
	fmt.Fprintf(os.Stderr, "Passphrase for %s: ", keyPath)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return pass, err
}

// LoadSigner reads a private key file, asking prompt for a passphrase when
// the key is encrypted.
func LoadSigner(keyPath string, prompt PassphraseFunc) (ssh.Signer, error) {
	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParseSigner(pem, keyPath, prompt)
}

// ParseSigner is LoadSigner for key material already in memory.
func ParseSigner(pem []byte, name string, prompt PassphraseFunc) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(pem)
	if err == nil {
		return signer, nil
	}
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) || prompt == nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}
	pass, err := prompt(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range pass {
			pass[i] = 0
		}
	}()
	signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, pass)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt private key: %w", err)
	}
	return signer, nil
}

// Session is an open SFTP session to one host.
type Session struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// FS returns the remote filesystem of the session.
func (s *Session) FS() RemoteFS { return sftpFS{s.sftp} }

// Close closes the SFTP and SSH clients.
func (s *Session) Close() error {
	if s.sftp != nil {
		_ = s.sftp.Close()
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Dialer opens sessions. It tries Signer first and falls back to the SSH
// agent when the signer is rejected or absent.
type Dialer struct {
	Config ConnectionConfig
	Signer ssh.Signer
	Hosts  KnownHosts
}

// Dial connects to host and starts SFTP.
func (d *Dialer) Dial(ctx context.Context, host string) (*Session, error) {
	cfg := d.Config
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = DefaultConnectionTimeout
	}
	addr := withPort(host, cfg.Port)
	hostKeys := HostKeyCallback(ctx, d.Hosts)

	var firstErr error
	if d.Signer != nil {
		client, err := sshDial(ctx, addr, &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(d.Signer)},
			HostKeyCallback: hostKeys,
			Timeout:         cfg.ConnectionTimeout,
		})
		if err == nil {
			return startSFTP(client)
		}
		if !IsAuthenticationError(err) {
			return nil, classify(host, err)
		}
		firstErr = err
	}

	ag := sshAgentGetter()
	if ag == nil {
		if firstErr != nil {
			return nil, fmt.Errorf("private key rejected by %s and no ssh agent available: %w", host, firstErr)
		}
		return nil, fmt.Errorf("no authentication method available for %s (no private key and no ssh agent)", host)
	}
	client, err := sshDial(ctx, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)},
		HostKeyCallback: hostKeys,
		Timeout:         cfg.ConnectionTimeout,
	})
	if err != nil {
		return nil, classify(host, err)
	}
	return startSFTP(client)
}

func startSFTP(client *ssh.Client) (*Session, error) {
	sc, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	return &Session{client: client, sftp: sc}, nil
}

var errProbeDone = errors.New("clusterkey: host key retrieved")

// GetRemoteHostKey performs a handshake with host only to read its key.
func GetRemoteHostKey(ctx context.Context, host string, port int) (ssh.PublicKey, error) {
	keyChan := make(chan ssh.PublicKey, 1)
	cfg := &ssh.ClientConfig{
		User: "clusterkey-probe",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			keyChan <- key
			return errProbeDone
		},
		Timeout: DefaultProbeTimeout,
	}
	_, err := sshDial(ctx, withPort(host, port), cfg)
	if err == nil {
		return nil, errors.New("ssh handshake succeeded unexpectedly, could not retrieve host key")
	}
	if errors.Is(err, errProbeDone) || strings.Contains(err.Error(), errProbeDone.Error()) {
		return <-keyChan, nil
	}
	return nil, classify(host, err)
}

// TrustHost fetches the host key of host and records it in hosts. The
// recorded authorized_keys line is returned.
func TrustHost(ctx context.Context, hosts KnownHosts, host string, port int) (string, error) {
	key, err := GetRemoteHostKey(ctx, host, port)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
	if err := hosts.AddKnownHostKey(ctx, stripPort(host), line); err != nil {
		return "", fmt.Errorf("save host key: %w", err)
	}
	return line, nil
}

func withPort(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func stripPort(hostname string) string {
	if h, _, err := net.SplitHostPort(hostname); err == nil {
		return h
	}
	return hostname
}
