package compare

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent candidate downloads.
const DefaultWorkers = 4

// Downloader fetches remote file content.
type Downloader interface {
	Download(ctx context.Context, remotePath string, dst io.Writer) error
}

// Ranked is a candidate with its diff score against the local file.
type Ranked struct {
	Path        string
	Score       int
	LocalLines  int
	RemoteLines int
	// FullRewrite is set when no line is shared; such a candidate is never picked automatically.
	FullRewrite bool
}

// Comparator ranks remote candidates by similarity to local content.
type Comparator struct {
	downloader Downloader
	workers    int
	tempDir    string
	logger     *slog.Logger
}

// Options configures a Comparator.
type Options struct {
	// Workers bounds concurrent downloads; DefaultWorkers when zero.
	Workers int
	// TempDir receives downloaded candidates; os.TempDir() when empty.
	TempDir string
	Logger  *slog.Logger
}

// NewComparator creates a Comparator fetching candidates through downloader.
func NewComparator(downloader Downloader, options Options) *Comparator {
	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Comparator{
		downloader: downloader,
		workers:    workers,
		tempDir:    options.TempDir,
		logger:     logger,
	}
}

// RankCandidates scores every candidate against local and returns them by
// ascending score. Equal scores keep the input order.
// Any download failure aborts the ranking.
func (c *Comparator) RankCandidates(ctx context.Context, local []byte, candidates []string) ([]Ranked, error) {
	localLines := Lines(local)
	localHash := xxhash.Sum64(local)
	localBinary := isBinaryContent(local)

	ranked := make([]Ranked, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, candidate := range candidates {
		g.Go(func() error {
			remote, err := c.fetch(gctx, candidate)
			if err != nil {
				return err
			}
			ranked[i] = c.score(candidate, local, localLines, localHash, localBinary, remote)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})
	return ranked, nil
}

func (c *Comparator) score(candidate string, local []byte, localLines []string, localHash uint64, localBinary bool, remote []byte) Ranked {
	remoteLines := Lines(remote)
	r := Ranked{
		Path:        candidate,
		LocalLines:  len(localLines),
		RemoteLines: len(remoteLines),
	}

	switch {
	case xxhash.Sum64(remote) == localHash && bytes.Equal(remote, local):
		r.Score = 0
	case localBinary || isBinaryContent(remote):
		r.Score = r.LocalLines + r.RemoteLines
	default:
		r.Score = Score(localLines, remoteLines)
	}
	r.FullRewrite = IsFullRewrite(r.Score, r.LocalLines, r.RemoteLines)

	c.logger.Debug("scored candidate",
		"path", candidate,
		"score", r.Score,
		"fullRewrite", r.FullRewrite,
	)
	return r
}

// fetch downloads remotePath into a temp file that is removed before returning.
func (c *Comparator) fetch(ctx context.Context, remotePath string) ([]byte, error) {
	tmp, err := os.CreateTemp(c.tempDir, "missile-candidate-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for %s: %w", remotePath, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := c.downloader.Download(ctx, remotePath, tmp); err != nil {
		return nil, fmt.Errorf("fetching candidate %s: %w", remotePath, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", tmp.Name(), err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", tmp.Name(), err)
	}
	return data, nil
}

// Best returns the lowest-scored candidate that is not a full rewrite.
func Best(ranked []Ranked) (Ranked, bool) {
	for _, r := range ranked {
		if !r.FullRewrite {
			return r, true
		}
	}
	return Ranked{}, false
}
