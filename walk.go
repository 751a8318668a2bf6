package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexandro/missile/ignore"
	"github.com/lexandro/missile/syncer"
)

// collectFiles expands paths into the regular files they name. Directories
// are walked, skipping whatever the ignore matcher rejects. Explicitly named
// files are kept even when ignored.
func collectFiles(paths []string, matcher *ignore.Matcher) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}

		filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != abs && matcher.ShouldIgnoreDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || matcher.ShouldIgnore(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil || matcher.IsFileTooLarge(info.Size()) {
				return nil
			}
			files = append(files, path)
			return nil
		})
	}
	return files, nil
}

// FileSyncer resolves, and possibly uploads, one local file.
type FileSyncer interface {
	Sync(ctx context.Context, absolutePath string) (syncer.Result, error)
}

// fileReport is the outcome of one file handled by syncFiles.
type fileReport struct {
	path   string
	result syncer.Result
	err    error
}

// syncFiles runs s over files with a bounded worker pool and returns the
// reports in input order.
func syncFiles(ctx context.Context, s FileSyncer, files []string, workers int, logger *slog.Logger) []fileReport {
	if workers < 1 {
		workers = 1
	}
	reports := make([]fileReport, len(files))
	jobs := make(chan int, len(files))
	for i := range files {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					reports[i] = fileReport{path: files[i], err: ctx.Err()}
					continue
				}
				result, err := s.Sync(ctx, files[i])
				if err != nil {
					logger.Debug("file not synced", "path", files[i], "error", err)
				}
				reports[i] = fileReport{path: files[i], result: result, err: err}
			}
		}()
	}
	wg.Wait()
	return reports
}
