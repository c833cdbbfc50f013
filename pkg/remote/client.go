package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (e.g., "connect", "push", "exec")
	Op string

	// Err is the underlying error
	Err error

	// IsTemporary indicates if the error is temporary and can be retried
	IsTemporary bool

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}

// PushResult describes a completed manifest push.
type PushResult struct {
	// Host is the push target
	Host string

	// RemotePath is where the manifest was written
	RemotePath string

	// BytesTransferred is the manifest size
	BytesTransferred int64

	// Checksum is the SHA256 of the pushed content
	Checksum string

	// Duration is the total push time
	Duration time.Duration
}

// Client pushes manifests to a single remote host.
type Client struct {
	config *Config
	logger zerolog.Logger

	connMu      sync.RWMutex
	client      *ssh.Client
	isConnected bool
}

// NewClient creates a push client for the given target.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: config,
		logger: logger.With().Str("component", "remote").Str("host", config.Host).Logger(),
	}, nil
}

// Connect establishes the SSH connection to the push target.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.isConnected && c.client != nil {
		return nil
	}

	clientConfig, err := c.config.BuildSSHClientConfig()
	if err != nil {
		return &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: false,
			IsAuthError: true,
		}
	}

	address := c.config.Address()
	c.logger.Debug().Str("address", address).Msg("establishing SSH connection")

	connChan := make(chan *ssh.Client, 1)
	errChan := make(chan error, 1)

	go func() {
		client, err := ssh.Dial("tcp", address, clientConfig)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- client
	}()

	select {
	case <-ctx.Done():
		return &TransportError{
			Op:          "connect",
			Err:         ctx.Err(),
			IsTemporary: true,
		}
	case err := <-errChan:
		return &TransportError{
			Op:          "connect",
			Err:         err,
			IsTemporary: true,
		}
	case client := <-connChan:
		c.client = client
		c.isConnected = true
		c.logger.Info().Str("address", address).Msg("SSH connection established")
		return nil
	}
}

// Disconnect closes the SSH connection.
func (c *Client) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.isConnected || c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	c.isConnected = false

	if err != nil {
		return &TransportError{
			Op:  "disconnect",
			Err: err,
		}
	}
	return nil
}

// IsConnected returns true if the client has an active connection.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.isConnected
}

// HealthCheck verifies the connection is still alive and responsive.
func (c *Client) HealthCheck(ctx context.Context) error {
	sshClient, err := c.getClient()
	if err != nil {
		return err
	}

	session, err := sshClient.NewSession()
	if err != nil {
		return &TransportError{
			Op:          "healthcheck",
			Err:         err,
			IsTemporary: true,
		}
	}
	defer session.Close()

	if err := session.Run("true"); err != nil {
		return &TransportError{
			Op:          "healthcheck",
			Err:         err,
			IsTemporary: true,
		}
	}
	return nil
}

// PushManifest uploads manifest content to remotePath on the target. The
// content is written to a temporary file next to the destination and renamed
// into place, so a reader never sees a partial manifest.
func (c *Client) PushManifest(ctx context.Context, content []byte, remotePath string, mode uint32) (*PushResult, error) {
	startTime := time.Now()

	sftpClient, err := c.createSFTPClient()
	if err != nil {
		return nil, err
	}
	defer sftpClient.Close()

	c.logger.Debug().
		Str("remote", remotePath).
		Int("bytes", len(content)).
		Msg("pushing manifest")

	remoteDir := path.Dir(remotePath)
	if err := sftpClient.MkdirAll(remoteDir); err != nil {
		return nil, &TransportError{
			Op:  "push",
			Err: fmt.Errorf("failed to create remote directory %s: %w", remoteDir, err),
		}
	}

	tmpPath := remotePath + ".tmp"
	remoteFile, err := sftpClient.Create(tmpPath)
	if err != nil {
		return nil, &TransportError{
			Op:          "push",
			Err:         fmt.Errorf("failed to create remote file: %w", err),
			IsTemporary: true,
		}
	}

	written, err := remoteFile.ReadFrom(bytes.NewReader(content))
	if cerr := remoteFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = sftpClient.Remove(tmpPath)
		return nil, &TransportError{
			Op:          "push",
			Err:         fmt.Errorf("failed to write remote file: %w", err),
			IsTemporary: true,
		}
	}

	if err := sftpClient.Chmod(tmpPath, os.FileMode(mode)); err != nil {
		_ = sftpClient.Remove(tmpPath)
		return nil, &TransportError{
			Op:  "push",
			Err: fmt.Errorf("failed to chmod remote file: %w", err),
		}
	}

	if err := sftpClient.PosixRename(tmpPath, remotePath); err != nil {
		_ = sftpClient.Remove(tmpPath)
		return nil, &TransportError{
			Op:  "push",
			Err: fmt.Errorf("failed to rename remote file: %w", err),
		}
	}

	sum := sha256.Sum256(content)
	result := &PushResult{
		Host:             c.config.Host,
		RemotePath:       remotePath,
		BytesTransferred: written,
		Checksum:         hex.EncodeToString(sum[:]),
		Duration:         time.Since(startTime),
	}

	c.logger.Info().
		Str("remote", remotePath).
		Int64("bytes", result.BytesTransferred).
		Dur("duration", result.Duration).
		Msg("manifest pushed")

	return result, nil
}

// VerifyManifest compares the remote manifest content against the expected
// SHA256 checksum.
func (c *Client) VerifyManifest(ctx context.Context, remotePath, expectedChecksum string) error {
	sftpClient, err := c.createSFTPClient()
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	remoteFile, err := sftpClient.Open(remotePath)
	if err != nil {
		return &TransportError{
			Op:  "verify",
			Err: fmt.Errorf("failed to open remote file: %w", err),
		}
	}
	defer remoteFile.Close()

	hash := sha256.New()
	if _, err := remoteFile.WriteTo(hash); err != nil {
		return &TransportError{
			Op:          "verify",
			Err:         fmt.Errorf("failed to read remote file: %w", err),
			IsTemporary: true,
		}
	}

	actual := hex.EncodeToString(hash.Sum(nil))
	if actual != expectedChecksum {
		return &TransportError{
			Op:  "verify",
			Err: fmt.Errorf("checksum mismatch: remote %s, expected %s", actual, expectedChecksum),
		}
	}
	return nil
}

// RunCommand executes a command on the remote host, typically the activation
// command after a push. Returns stdout and stderr.
func (c *Client) RunCommand(ctx context.Context, cmd string) (string, string, error) {
	sshClient, err := c.getClient()
	if err != nil {
		return "", "", err
	}

	session, err := sshClient.NewSession()
	if err != nil {
		return "", "", &TransportError{
			Op:          "exec",
			Err:         err,
			IsTemporary: true,
		}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	timeout := c.config.CommandTimeout
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-execCtx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return stdout.String(), stderr.String(), &TransportError{
			Op:          "exec",
			Err:         fmt.Errorf("command timed out after %s", timeout),
			IsTemporary: true,
		}
	case err := <-done:
		if err != nil {
			return stdout.String(), stderr.String(), &TransportError{
				Op:  "exec",
				Err: err,
			}
		}
		return stdout.String(), stderr.String(), nil
	}
}

// createSFTPClient creates a new SFTP client over the SSH connection.
func (c *Client) createSFTPClient() (*sftp.Client, error) {
	sshClient, err := c.getClient()
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, &TransportError{
			Op:          "sftp-init",
			Err:         fmt.Errorf("failed to create SFTP client: %w", err),
			IsTemporary: true,
		}
	}
	return sftpClient, nil
}

// getClient returns the underlying SSH client.
func (c *Client) getClient() (*ssh.Client, error) {
	c.connMu.RLock()
	defer c.connMu.RUnlock()

	if !c.isConnected || c.client == nil {
		return nil, &TransportError{
			Op:  "get-client",
			Err: fmt.Errorf("not connected"),
		}
	}
	return c.client, nil
}
