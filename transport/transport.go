package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrRemoteUnavailable is wrapped by every listing, download and upload failure.
var ErrRemoteUnavailable = errors.New("remote unavailable")

// Transport is the remote host as seen by the resolver and the syncer.
type Transport interface {
	// ListFiles returns every regular file below root as absolute remote paths.
	ListFiles(ctx context.Context, root string) ([]string, error)
	// Download copies the content of remotePath into dst.
	Download(ctx context.Context, remotePath string, dst io.Writer) error
	// Upload copies a local file to remotePath, creating parent directories.
	Upload(ctx context.Context, localPath string, remotePath string) error
}

// RemoteCommandError reports a remote command that exited non-zero.
type RemoteCommandError struct {
	Command    string
	ExitStatus int
	Stdout     string
	Stderr     string
}

func (e *RemoteCommandError) Error() string {
	return fmt.Sprintf("remote command %q exited with status %d: %s",
		e.Command, e.ExitStatus, strings.TrimSpace(e.Stderr))
}

// Unwrap lets errors.Is match ErrRemoteUnavailable.
func (e *RemoteCommandError) Unwrap() error {
	return ErrRemoteUnavailable
}

// unavailable wraps err so that it matches ErrRemoteUnavailable.
func unavailable(op string, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrRemoteUnavailable, err)
}

// shellQuote single-quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// parseListing turns `find` output into absolute paths below root.
func parseListing(root string, output string) []string {
	root = strings.TrimRight(root, "/")
	var paths []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			line = root + "/" + line
		}
		paths = append(paths, line)
	}
	return paths
}
