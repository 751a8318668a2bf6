package resolver

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lexandro/missile/compare"
)

// ChangedFile describes one locally modified file inside a repository.
type ChangedFile struct {
	Repository string
	// Root is the absolute repository root.
	Root string
	// RelativePath is slash-separated and relative to Root.
	RelativePath string
	AbsolutePath string
}

// NewChangedFile derives the relative path of absolutePath by stripping root.
// Paths outside root are rejected.
func NewChangedFile(repository string, root string, absolutePath string) (ChangedFile, error) {
	root = filepath.Clean(root)
	absolutePath = filepath.Clean(absolutePath)

	rel, err := filepath.Rel(root, absolutePath)
	if err != nil {
		return ChangedFile{}, fmt.Errorf("relative path of %s: %w", absolutePath, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ChangedFile{}, fmt.Errorf("%s is not inside repository root %s", absolutePath, root)
	}

	return ChangedFile{
		Repository:   repository,
		Root:         root,
		RelativePath: filepath.ToSlash(rel),
		AbsolutePath: absolutePath,
	}, nil
}

// Name returns the basename used for index lookups.
func (f ChangedFile) Name() string {
	return path.Base(f.RelativePath)
}

// Content reads the file from disk. Every call re-reads it.
func (f ChangedFile) Content() ([]byte, error) {
	data, err := os.ReadFile(f.AbsolutePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.AbsolutePath, err)
	}
	return data, nil
}

// Lines returns the current content split into lines.
func (f ChangedFile) Lines() ([]string, error) {
	data, err := f.Content()
	if err != nil {
		return nil, err
	}
	return compare.Lines(data), nil
}
