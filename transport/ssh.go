package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHOptions configures a connection to the deployment host.
type SSHOptions struct {
	Host     string
	Port     string
	Username string
	Password string
	// KnownHostsFile is checked for the host key unless InsecureIgnoreHostKey is set.
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

// SSH runs listings over SSH sessions and moves file content over SFTP.
type SSH struct {
	client *ssh.Client
	sftp   *sftp.Client
	logger *slog.Logger
}

// DialSSH connects and authenticates with a password.
func DialSSH(options SSHOptions, logger *slog.Logger) (*SSH, error) {
	hostKeyCallback, err := hostKeyCallback(options)
	if err != nil {
		return nil, err
	}

	address := net.JoinHostPort(options.Host, options.Port)
	client, err := ssh.Dial("tcp", address, &ssh.ClientConfig{
		User:            options.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(options.Password)},
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w: %w", address, ErrRemoteUnavailable, err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("starting sftp on %s: %w: %w", address, ErrRemoteUnavailable, err)
	}

	logger.Info("connected to remote host", "address", address, "user", options.Username)
	return &SSH{client: client, sftp: sftpClient, logger: logger}, nil
}

func hostKeyCallback(options SSHOptions) (ssh.HostKeyCallback, error) {
	if options.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(options.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts %s: %w", options.KnownHostsFile, err)
	}
	return callback, nil
}

// ListFiles runs `find <root> -type f` on the remote host.
func (s *SSH) ListFiles(ctx context.Context, root string) ([]string, error) {
	command := "find " + shellQuote(root) + " -type f"
	stdout, err := s.run(ctx, command)
	if err != nil {
		return nil, err
	}
	return parseListing(root, stdout), nil
}

// run executes command in a fresh session. The session is closed when ctx ends.
func (s *SSH) run(ctx context.Context, command string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", unavailable("opening session for", command, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	s.logger.Debug("running remote command", "command", command)
	if err := session.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return "", &RemoteCommandError{
				Command:    command,
				ExitStatus: exitErr.ExitStatus(),
				Stdout:     stdout.String(),
				Stderr:     stderr.String(),
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", unavailable("running", command, err)
	}
	return stdout.String(), nil
}

// Download streams remotePath into dst over SFTP.
func (s *SSH) Download(ctx context.Context, remotePath string, dst io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.sftp.Open(remotePath)
	if err != nil {
		return unavailable("opening remote file", remotePath, err)
	}
	defer f.Close()

	if _, err := f.WriteTo(dst); err != nil {
		return unavailable("downloading", remotePath, err)
	}
	return nil
}

// Upload writes localPath to remotePath over SFTP.
func (s *SSH) Upload(ctx context.Context, localPath string, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file %s: %w", localPath, err)
	}
	defer src.Close()

	if err := s.sftp.MkdirAll(path.Dir(remotePath)); err != nil {
		return unavailable("creating remote directory for", remotePath, err)
	}
	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return unavailable("creating remote file", remotePath, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return unavailable("uploading", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return unavailable("closing remote file", remotePath, err)
	}
	return nil
}

// Close releases the SFTP subsystem and the SSH connection.
func (s *SSH) Close() error {
	sftpErr := s.sftp.Close()
	if err := s.client.Close(); err != nil {
		return err
	}
	return sftpErr
}
