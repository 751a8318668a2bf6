package gitrepo

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner abstracts git command execution for testability.
type CommandRunner interface {
	Run(dir string, args ...string) (string, error)
}

// OSCommandRunner executes real git commands via os/exec.
type OSCommandRunner struct{}

func (r OSCommandRunner) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %v failed: %s", args, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %v failed: %w", args, err)
	}
	return string(out), nil
}

// FakeCommandRunner is a test double that returns preset output.
type FakeCommandRunner struct {
	Outputs map[string]string
	Errors  map[string]error
}

func (r FakeCommandRunner) key(dir string, args ...string) string {
	return fmt.Sprintf("%s:%v", dir, args)
}

func (r FakeCommandRunner) Run(dir string, args ...string) (string, error) {
	key := r.key(dir, args...)
	if err, ok := r.Errors[key]; ok {
		return "", err
	}
	if out, ok := r.Outputs[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("FakeCommandRunner: no output for key %q", key)
}

// Repository identifies a local checkout.
type Repository struct {
	// ID is the stable name used to scope mappings and indexes.
	ID   string
	Root string
}

// Discover finds the checkout containing dir. The id is derived from the
// origin remote, or from the root directory name when there is no origin.
func Discover(runner CommandRunner, dir string) (Repository, error) {
	root, err := Root(runner, dir)
	if err != nil {
		return Repository{}, err
	}

	out, err := runner.Run(root, "remote", "get-url", "origin")
	if err != nil {
		return Repository{ID: filepath.Base(root), Root: root}, nil
	}
	id := NameFromURL(strings.TrimSpace(out))
	if id == "" {
		id = filepath.Base(root)
	}
	return Repository{ID: id, Root: root}, nil
}

// Root returns the top-level directory of the checkout containing dir.
func Root(runner CommandRunner, dir string) (string, error) {
	out, err := runner.Run(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%s is not inside a git repository: %w", dir, err)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return "", fmt.Errorf("git returned an empty toplevel for %s", dir)
	}
	return filepath.Clean(root), nil
}

// NameFromURL extracts the repository name from a remote URL:
// "git@github.com:acme/app.git" and "https://github.com/acme/app" both give "app".
func NameFromURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	url = strings.TrimSuffix(url, ".git")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return url
}
