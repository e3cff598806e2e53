// Package sshexec runs commands on the platform's remote WordPress host
// over SSH. Command execution happens through an explicit Session handle
// acquired from Connect, so "one live session per caller" is enforced by
// the types rather than by caller discipline.
package sshexec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const defaultConnectTimeout = 30 * time.Second

var (
	// ErrNotConfigured is returned by Connect when host or key material is unset.
	ErrNotConfigured = errors.New("sshexec: host or private key not configured")
)

// ConnectionError wraps transport-level failures during dial or handshake.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "sshexec: connect: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// ExecError wraps transport-level failures during command execution.
// A non-zero exit code is NOT an ExecError; it is a normal CommandResult.
type ExecError struct {
	Command string
	Err     error
}

func (e *ExecError) Error() string { return "sshexec: execute: " + e.Err.Error() }
func (e *ExecError) Unwrap() error { return e.Err }

// CommandResult captures the outcome of one remote command.
type CommandResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Config describes the remote host and key material.
type Config struct {
	Host           string
	Port           int
	User           string
	PrivateKey     string
	KeyIsBase64    bool
	ConnectTimeout time.Duration
}

// Client dials sessions against one configured remote host.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a client for the configured host. No connection is
// opened until Connect is called.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Client{cfg: cfg, logger: logger}
}

// Connect opens one authenticated connection and returns the session
// handle all command execution goes through. The handshake is bounded by
// the configured connect timeout.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	if c.cfg.Host == "" || c.cfg.PrivateKey == "" {
		return nil, ErrNotConfigured
	}

	keyPEM := []byte(c.cfg.PrivateKey)
	if c.cfg.KeyIsBase64 {
		decoded, err := base64.StdEncoding.DecodeString(c.cfg.PrivateKey)
		if err != nil {
			return nil, &ConnectionError{Err: fmt.Errorf("decode private key: %w", err)}
		}
		keyPEM = decoded
	}

	signer, err := ssh.ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("parse private key: %w", err)}
	}

	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.ConnectTimeout,
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("dial %s: %w", addr, err)}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshCfg)
	if err != nil {
		netConn.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("handshake %s: %w", addr, err)}
	}

	c.logger.Debug("SSH connection established",
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port),
	)

	return &Session{
		conn:   ssh.NewClient(sshConn, chans, reqs),
		logger: c.logger,
	}, nil
}

// Session is a live authenticated connection to the remote host. Execute
// calls on one session serialize; a session must not be shared across
// concurrent workflows.
type Session struct {
	conn   *ssh.Client
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Execute runs a single command and returns its captured streams and exit
// code. A non-zero exit code resolves normally; only transport faults
// return an error.
func (s *Session) Execute(ctx context.Context, command string) (*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &ExecError{Command: command, Err: errors.New("session is closed")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExecError{Command: command, Err: err}
	}

	sess, err := s.conn.NewSession()
	if err != nil {
		return nil, &ExecError{Command: command, Err: fmt.Errorf("open channel: %w", err)}
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	result := &CommandResult{Command: command}
	if err := sess.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			return nil, &ExecError{Command: command, Err: err}
		}
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	s.logger.Debug("remote command finished",
		zap.Int("exit_code", result.ExitCode),
	)

	return result, nil
}

// commandRunner is the single-command surface runSequence drives.
type commandRunner interface {
	Execute(ctx context.Context, command string) (*CommandResult, error)
}

// runSequence runs commands strictly in order, stopping after the first
// non-zero exit code. It returns every result gathered up to and including
// the failing command.
func runSequence(ctx context.Context, run commandRunner, commands []string) ([]*CommandResult, error) {
	results := make([]*CommandResult, 0, len(commands))
	for _, cmd := range commands {
		res, err := run.Execute(ctx, cmd)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.ExitCode != 0 {
			break
		}
	}
	return results, nil
}

// ExecuteMany runs commands strictly in sequence, stopping after the first
// non-zero exit code. It returns every result gathered up to and including
// the failing command.
func (s *Session) ExecuteMany(ctx context.Context, commands []string) ([]*CommandResult, error) {
	return runSequence(ctx, s, commands)
}

// Close releases the connection. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
