package selector

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var (
	// ErrCancelled means the operator dismissed the prompt.
	ErrCancelled = errors.New("selection cancelled")
	// ErrNoSelection means the prompt ended without a usable candidate.
	ErrNoSelection = errors.New("no candidate selected")
)

// Selector asks an operator to pick the remote path for a local file.
// Errors are never fatal: callers treat any error as "no resolution this round".
type Selector interface {
	Select(ctx context.Context, filename string, candidates []string) (string, error)
}

// Header is the prompt title shown above the candidate list.
func Header(filename string) string {
	return fmt.Sprintf("Find remote path for file: %s", filename)
}

// Mode names a Selector implementation in configuration.
const (
	ModeAuto    = "auto"
	ModeFzf     = "fzf"
	ModeBuiltin = "builtin"
)

// New returns the Selector for mode. In auto mode fzf is used when it is on PATH.
func New(mode string) (Selector, error) {
	switch mode {
	case ModeFzf:
		return NewFzf(nil), nil
	case ModeBuiltin:
		return NewPicker(), nil
	case ModeAuto, "":
		if _, err := exec.LookPath("fzf"); err == nil {
			return NewFzf(nil), nil
		}
		return NewPicker(), nil
	default:
		return nil, fmt.Errorf("unknown selector %q (must be auto, fzf or builtin)", mode)
	}
}

// contains reports whether choice is one of candidates.
func contains(candidates []string, choice string) bool {
	for _, c := range candidates {
		if c == choice {
			return true
		}
	}
	return false
}
