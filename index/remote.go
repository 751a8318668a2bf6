package index

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/singleflight"

	"github.com/lexandro/missile/store"
)

// Lister lists remote files below a root.
type Lister interface {
	ListFiles(ctx context.Context, root string) ([]string, error)
}

// Entry is the index of one repository: remote filename -> candidate paths.
// Entries are never modified after construction; a refresh builds a new one.
type Entry struct {
	Repository  string
	byName      map[string][]string
	paths       []string // enumeration order
	RefreshedAt time.Time
}

// Candidates returns the remote paths whose basename is filename, in enumeration order.
func (e *Entry) Candidates(filename string) []string {
	return slices.Clone(e.byName[filename])
}

// Paths returns every indexed remote path in enumeration order.
func (e *Entry) Paths() []string {
	return slices.Clone(e.paths)
}

// FileCount returns the number of indexed remote paths.
func (e *Entry) FileCount() int {
	return len(e.paths)
}

// Options configures a RemoteIndex.
type Options struct {
	// Exclude holds doublestar patterns matched against remote absolute paths.
	Exclude []string
	// Cache persists listings between runs. Optional.
	Cache  *store.NameCache
	Logger *slog.Logger
}

// RemoteIndex maps filenames to remote candidate paths per repository.
// Entries are built lazily and then kept until Refresh or Invalidate.
type RemoteIndex struct {
	mu      sync.RWMutex
	entries map[string]*Entry // key: repository id
	lister  Lister
	exclude []string
	cache   *store.NameCache
	search  *PathSearch
	group   singleflight.Group
	logger  *slog.Logger
}

// NewRemoteIndex creates an index listing through lister.
func NewRemoteIndex(lister Lister, options Options) (*RemoteIndex, error) {
	for _, pattern := range options.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	search, err := NewPathSearch()
	if err != nil {
		return nil, err
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RemoteIndex{
		entries: make(map[string]*Entry),
		lister:  lister,
		exclude: options.Exclude,
		cache:   options.Cache,
		search:  search,
		logger:  logger,
	}, nil
}

// Refresh lists every root and replaces the repository's entry.
// A listing failure is returned and the previous entry is kept.
// Concurrent refreshes of the same repository share one listing.
func (x *RemoteIndex) Refresh(ctx context.Context, repo string, roots []string) (*Entry, error) {
	result, err, shared := x.group.Do(repo, func() (any, error) {
		return x.rebuild(ctx, repo, roots)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		x.logger.Debug("joined in-flight index refresh", "repo", repo)
	}
	return result.(*Entry), nil
}

func (x *RemoteIndex) rebuild(ctx context.Context, repo string, roots []string) (*Entry, error) {
	start := time.Now()
	if len(roots) == 0 {
		return nil, fmt.Errorf("no remote roots configured for repository %s", repo)
	}

	var listed []string
	for _, root := range roots {
		files, err := x.lister.ListFiles(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("listing remote root %s: %w", root, err)
		}
		listed = append(listed, files...)
	}

	entry := x.buildEntry(repo, listed)

	x.mu.Lock()
	x.entries[repo] = entry
	x.mu.Unlock()

	if err := x.search.Replace(repo, entry.paths); err != nil {
		x.logger.Warn("failed to update remote path search", "repo", repo, "error", err)
	}
	if x.cache != nil {
		listing := store.Listing{Paths: entry.paths, RefreshedAt: entry.RefreshedAt}
		if err := x.cache.Put(repo, listing); err != nil {
			x.logger.Warn("failed to persist name cache", "repo", repo, "error", err)
		}
	}

	x.logger.Info("remote index refreshed",
		"repo", repo,
		"roots", len(roots),
		"files", len(entry.paths),
		"duration", time.Since(start),
	)
	return entry, nil
}

// buildEntry dedupes and filters listed paths, keeping first-seen order.
func (x *RemoteIndex) buildEntry(repo string, listed []string) *Entry {
	entry := &Entry{
		Repository:  repo,
		byName:      make(map[string][]string),
		RefreshedAt: time.Now(),
	}
	seen := make(map[string]bool, len(listed))
	for _, p := range listed {
		if seen[p] || x.excluded(p) {
			continue
		}
		seen[p] = true
		entry.paths = append(entry.paths, p)
		name := path.Base(p)
		entry.byName[name] = append(entry.byName[name], p)
	}
	return entry
}

func (x *RemoteIndex) excluded(remotePath string) bool {
	for _, pattern := range x.exclude {
		if matched, err := doublestar.Match(pattern, remotePath); err == nil && matched {
			return true
		}
	}
	return false
}

// entry returns the repository's entry, restoring it from the name cache or
// refreshing when none exists.
func (x *RemoteIndex) entry(ctx context.Context, repo string, roots []string) (*Entry, error) {
	x.mu.RLock()
	entry, ok := x.entries[repo]
	x.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if entry := x.restore(repo); entry != nil {
		return entry, nil
	}

	// A lookup that lost the race to a finished build reuses its entry.
	result, err, _ := x.group.Do(repo, func() (any, error) {
		x.mu.RLock()
		existing, ok := x.entries[repo]
		x.mu.RUnlock()
		if ok {
			return existing, nil
		}
		return x.rebuild(ctx, repo, roots)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Entry), nil
}

// restore rebuilds an entry from the persisted name cache, keeping the
// listing's enumeration order and time.
func (x *RemoteIndex) restore(repo string) *Entry {
	if x.cache == nil {
		return nil
	}
	listing, ok := x.cache.Get(repo)
	if !ok {
		return nil
	}

	entry := x.buildEntry(repo, listing.Paths)
	entry.RefreshedAt = listing.RefreshedAt

	x.mu.Lock()
	if existing, ok := x.entries[repo]; ok {
		x.mu.Unlock()
		return existing
	}
	x.entries[repo] = entry
	x.mu.Unlock()

	if err := x.search.Replace(repo, entry.paths); err != nil {
		x.logger.Warn("failed to update remote path search", "repo", repo, "error", err)
	}
	x.logger.Debug("remote index restored from cache", "repo", repo, "files", len(entry.paths))
	return entry
}

// Lookup returns the candidates for filename, building the entry on first use.
// An empty result means no remote file has that name; a failed listing is an error.
func (x *RemoteIndex) Lookup(ctx context.Context, repo string, roots []string, filename string) ([]string, error) {
	entry, err := x.entry(ctx, repo, roots)
	if err != nil {
		return nil, err
	}
	return entry.Candidates(filename), nil
}

// Paths returns the full remote listing for repo, building the entry on first use.
func (x *RemoteIndex) Paths(ctx context.Context, repo string, roots []string) ([]string, error) {
	entry, err := x.entry(ctx, repo, roots)
	if err != nil {
		return nil, err
	}
	return entry.Paths(), nil
}

// Invalidate drops the in-memory and cached entry so the next lookup refreshes.
func (x *RemoteIndex) Invalidate(repo string) error {
	x.mu.Lock()
	delete(x.entries, repo)
	x.mu.Unlock()

	if err := x.search.Replace(repo, nil); err != nil {
		x.logger.Warn("failed to clear remote path search", "repo", repo, "error", err)
	}
	if x.cache != nil {
		return x.cache.Drop(repo)
	}
	return nil
}

// Stats describes the in-memory entry of a repository.
type Stats struct {
	Loaded      bool
	Files       int
	Names       int
	RefreshedAt time.Time
}

// Stats reports on repo without triggering a refresh.
func (x *RemoteIndex) Stats(repo string) Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	entry, ok := x.entries[repo]
	if !ok {
		return Stats{}
	}
	return Stats{
		Loaded:      true,
		Files:       len(entry.paths),
		Names:       len(entry.byName),
		RefreshedAt: entry.RefreshedAt,
	}
}

// Glob returns indexed paths of repo matching a doublestar pattern.
func (x *RemoteIndex) Glob(ctx context.Context, repo string, roots []string, pattern string, maxResults int) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	entry, err := x.entry(ctx, repo, roots)
	if err != nil {
		return nil, err
	}

	var results []string
	for _, p := range entry.paths {
		if len(results) >= maxResults {
			break
		}
		if matched, err := doublestar.Match(pattern, p); err == nil && matched {
			results = append(results, p)
		}
	}
	return results, nil
}

// Search runs a full-text query over the remote paths of repo.
func (x *RemoteIndex) Search(ctx context.Context, repo string, roots []string, query string, maxResults int) ([]string, error) {
	if _, err := x.entry(ctx, repo, roots); err != nil {
		return nil, err
	}
	return x.search.Search(repo, query, maxResults)
}

// Close releases the path search index.
func (x *RemoteIndex) Close() error {
	return x.search.Close()
}
