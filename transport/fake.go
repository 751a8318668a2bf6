package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Fake is an in-memory Transport. Files maps remote absolute paths to content.
// It records every call so tests can assert on remote traffic.
type Fake struct {
	mu sync.Mutex

	Files map[string]string
	// ListErrors and DownloadErrors fail the matching root or path.
	ListErrors     map[string]error
	DownloadErrors map[string]error
	// Order fixes the listing order; unset means sorted.
	Order []string

	ListCalls     []string
	DownloadCalls []string
	Uploads       map[string]string
}

// NewFake returns a Fake holding files.
func NewFake(files map[string]string) *Fake {
	if files == nil {
		files = make(map[string]string)
	}
	return &Fake{
		Files:          files,
		ListErrors:     make(map[string]error),
		DownloadErrors: make(map[string]error),
		Uploads:        make(map[string]string),
	}
}

func (f *Fake) ListFiles(ctx context.Context, root string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls = append(f.ListCalls, root)
	if err, ok := f.ListErrors[root]; ok {
		return nil, err
	}

	prefix := strings.TrimRight(root, "/") + "/"
	var paths []string
	if len(f.Order) > 0 {
		for _, p := range f.Order {
			if _, ok := f.Files[p]; ok && strings.HasPrefix(p, prefix) {
				paths = append(paths, p)
			}
		}
		return paths, nil
	}
	for p := range f.Files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (f *Fake) Download(ctx context.Context, remotePath string, dst io.Writer) error {
	f.mu.Lock()
	f.DownloadCalls = append(f.DownloadCalls, remotePath)
	err, failed := f.DownloadErrors[remotePath]
	content, ok := f.Files[remotePath]
	f.mu.Unlock()

	if failed {
		return err
	}
	if !ok {
		return unavailable("opening remote file", remotePath, os.ErrNotExist)
	}
	_, werr := io.WriteString(dst, content)
	return werr
}

func (f *Fake) Upload(ctx context.Context, localPath string, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("opening local file %s: %w", localPath, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads[remotePath] = string(data)
	f.Files[remotePath] = string(data)
	return nil
}

// Calls returns the number of list and download calls made so far.
func (f *Fake) Calls() (lists int, downloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ListCalls), len(f.DownloadCalls)
}
