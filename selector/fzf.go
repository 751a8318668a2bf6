package selector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ProcessRunner runs an interactive process with stdin and returns its stdout.
type ProcessRunner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

// OSProcessRunner runs real processes. Stderr stays attached to the terminal
// so the process can draw its interface.
type OSProcessRunner struct{}

func (r OSProcessRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stderr = os.Stderr
	return cmd.Output()
}

// Fzf picks a candidate with the external fzf fuzzy finder.
type Fzf struct {
	runner ProcessRunner
	binary string
}

// NewFzf creates an fzf selector. A nil runner runs the real process.
func NewFzf(runner ProcessRunner) *Fzf {
	if runner == nil {
		runner = OSProcessRunner{}
	}
	return &Fzf{runner: runner, binary: "fzf"}
}

// Select feeds candidates to fzf, pre-seeded with filename as header and query.
func (f *Fzf) Select(ctx context.Context, filename string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoSelection
	}

	stdin := strings.NewReader(strings.Join(candidates, "\n") + "\n")
	args := []string{
		"--header", Header(filename),
		"--query", filename,
		"--print-query",
	}

	output, err := f.runner.Run(ctx, stdin, f.binary, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return "", fmt.Errorf("%w: running %s: %w", ErrNoSelection, f.binary, err)
	}
	return parseFzfOutput(output, candidates)
}

// parseFzfOutput reads fzf --print-query output: the query line, then the selection.
func parseFzfOutput(output []byte, candidates []string) (string, error) {
	lines := strings.Split(string(bytes.TrimRight(output, "\r\n")), "\n")
	if len(lines) < 2 {
		return "", fmt.Errorf("%w: unexpected fzf output %q", ErrNoSelection, output)
	}
	choice := strings.TrimRight(lines[1], "\r")
	if !contains(candidates, choice) {
		return "", fmt.Errorf("%w: %q is not a candidate", ErrNoSelection, choice)
	}
	return choice, nil
}
