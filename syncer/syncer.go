package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/resolver"
	"github.com/lexandro/missile/transport"
	"github.com/lexandro/missile/watcher"
)

// Resolver finds the remote path of a changed file.
type Resolver interface {
	Resolve(ctx context.Context, file resolver.ChangedFile) (resolver.Resolution, error)
}

// Uploader pushes a local file to the remote host.
type Uploader interface {
	Upload(ctx context.Context, localPath string, remotePath string) error
}

// Recorder stores the outcome of every handled file.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Options configures a Syncer.
type Options struct {
	Repository string
	Root       string
	// Journal is optional.
	Journal Recorder
	// MaxFileSize skips larger files; zero disables the check.
	MaxFileSize int64
	// DryRun resolves without uploading.
	DryRun bool
	Logger *slog.Logger
}

// Syncer turns local change events into uploads.
// Every file is resolved and uploaded on its own goroutine.
type Syncer struct {
	repository  string
	root        string
	resolver    Resolver
	uploader    Uploader
	journal     Recorder
	maxFileSize int64
	dryRun      bool
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// Result describes what happened to one file.
type Result struct {
	Resolution resolver.Resolution
	Outcome    journal.Outcome
	// Skipped is set when the file was not handled at all.
	Skipped bool
}

// New creates a Syncer for one repository.
func New(res Resolver, uploader Uploader, options Options) *Syncer {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{
		repository:  options.Repository,
		root:        options.Root,
		resolver:    res,
		uploader:    uploader,
		journal:     options.Journal,
		maxFileSize: options.MaxFileSize,
		dryRun:      options.DryRun,
		logger:      logger.With("repo", options.Repository),
	}
}

// Run handles batches from events until ctx is done or events is closed,
// then waits for in-flight files.
func (s *Syncer) Run(ctx context.Context, events <-chan []watcher.ChangeEvent) {
	defer s.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			s.Handle(ctx, batch)
		}
	}
}

// Handle starts a sync for every created or written file in batch.
// Removals and renames are not propagated.
func (s *Syncer) Handle(ctx context.Context, batch []watcher.ChangeEvent) {
	for _, event := range batch {
		if event.Op != watcher.OpCreate && event.Op != watcher.OpWrite {
			s.logger.Debug("ignoring change", "path", event.Path, "op", event.Op)
			continue
		}
		s.wg.Add(1)
		go func(path string) {
			defer s.wg.Done()
			s.Sync(ctx, path)
		}(event.Path)
	}
}

// Wait blocks until every started sync has finished.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// Sync resolves and uploads one file. The returned error is already logged
// and journaled; callers only need it for their own reporting.
func (s *Syncer) Sync(ctx context.Context, absolutePath string) (Result, error) {
	info, err := os.Stat(absolutePath)
	if err != nil {
		s.logger.Debug("skipping vanished file", "path", absolutePath, "error", err)
		return Result{Skipped: true}, nil
	}
	if info.IsDir() {
		return Result{Skipped: true}, nil
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		s.logger.Warn("skipping file over size limit", "path", absolutePath, "size", info.Size(), "limit", s.maxFileSize)
		return Result{Skipped: true}, nil
	}

	file, err := resolver.NewChangedFile(s.repository, s.root, absolutePath)
	if err != nil {
		s.logger.Warn("skipping file outside repository", "path", absolutePath, "error", err)
		return Result{Skipped: true}, nil
	}

	start := time.Now()
	res, err := s.resolver.Resolve(ctx, file)
	result := Result{Resolution: res}
	if err != nil {
		result.Outcome = s.reportFailure(ctx, res, file, err)
		return result, err
	}

	if s.dryRun {
		result.Outcome = journal.OutcomeResolved
		s.logger.Info("resolved",
			"file", file.RelativePath,
			"remote", res.RemotePath,
			"strategy", res.Strategy,
		)
		s.record(ctx, res, file, result.Outcome, nil, time.Since(start))
		return result, nil
	}

	if err := s.uploader.Upload(ctx, file.AbsolutePath, res.RemotePath); err != nil {
		err = fmt.Errorf("uploading %s to %s: %w", file.RelativePath, res.RemotePath, err)
		result.Outcome = s.reportFailure(ctx, res, file, err)
		return result, err
	}

	result.Outcome = journal.OutcomeSynced
	s.logger.Info("synced",
		"file", file.RelativePath,
		"remote", res.RemotePath,
		"strategy", res.Strategy,
		"duration", time.Since(start),
	)
	s.record(ctx, res, file, result.Outcome, nil, time.Since(start))
	return result, nil
}

// reportFailure logs err at the level its class calls for and journals it.
func (s *Syncer) reportFailure(ctx context.Context, res resolver.Resolution, file resolver.ChangedFile, err error) journal.Outcome {
	var outcome journal.Outcome
	switch {
	case errors.Is(err, resolver.ErrUserCancelled):
		outcome = journal.OutcomeCancelled
		s.logger.Info("resolution cancelled", "file", file.RelativePath, "id", res.ID)
	case resolver.IsUnresolved(err):
		outcome = journal.OutcomeUnresolved
		s.logger.Warn("no remote path found", "file", file.RelativePath, "id", res.ID)
	case errors.Is(err, transport.ErrRemoteUnavailable):
		outcome = journal.OutcomeError
		s.logger.Error("remote unavailable, file skipped", "file", file.RelativePath, "id", res.ID, "error", err)
	default:
		outcome = journal.OutcomeError
		s.logger.Error("sync failed", "file", file.RelativePath, "id", res.ID, "error", err)
	}
	s.record(ctx, res, file, outcome, err, res.Duration)
	return outcome
}

func (s *Syncer) record(ctx context.Context, res resolver.Resolution, file resolver.ChangedFile, outcome journal.Outcome, err error, duration time.Duration) {
	if s.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:           res.ID,
		Repository:   file.Repository,
		RelativePath: file.RelativePath,
		RemotePath:   res.RemotePath,
		Strategy:     res.Strategy,
		Outcome:      outcome,
		Duration:     duration,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// The journal outlives a cancelled watch context so the last outcomes are kept.
	if recErr := s.journal.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		s.logger.Warn("failed to journal outcome", "file", file.RelativePath, "error", recErr)
	}
}
