package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lexandro/missile/compare"
	"github.com/lexandro/missile/index"
	"github.com/lexandro/missile/selector"
	"github.com/lexandro/missile/store"
)

// MapStrategy returns a recorded mapping.
type MapStrategy struct {
	store *store.MapStore
}

// NewMapStrategy creates a strategy reading mappings.
func NewMapStrategy(mappings *store.MapStore) *MapStrategy {
	return &MapStrategy{store: mappings}
}

// Name returns StrategyMap.
func (s *MapStrategy) Name() string { return StrategyMap }

// Resolve returns the mapping recorded for the file, or "" when there is none.
func (s *MapStrategy) Resolve(ctx context.Context, a *Attempt) (string, error) {
	remote, _ := s.store.Get(a.File.Repository, a.File.RelativePath)
	return remote, nil
}

// NameStrategy returns the only remote file sharing the local filename.
// Several matches are handed on as candidates.
type NameStrategy struct {
	index *index.RemoteIndex
}

// NewNameStrategy creates a strategy looking filenames up in remote.
func NewNameStrategy(remote *index.RemoteIndex) *NameStrategy {
	return &NameStrategy{index: remote}
}

// Name returns StrategyName.
func (s *NameStrategy) Name() string { return StrategyName }

// Resolve builds the repository's index on first use. A listing failure is returned.
func (s *NameStrategy) Resolve(ctx context.Context, a *Attempt) (string, error) {
	candidates, err := s.index.Lookup(ctx, a.File.Repository, a.Roots, a.File.Name())
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
		return candidates[0], nil
	default:
		a.Candidates = candidates
		return "", nil
	}
}

// DiffStrategy picks the candidate whose content is closest to the local file.
// Without candidates it refreshes the index once and looks again, unless the
// index was listed during the same attempt.
type DiffStrategy struct {
	index      *index.RemoteIndex
	comparator *compare.Comparator
	logger     *slog.Logger
}

// NewDiffStrategy creates a strategy ranking candidates with comparator.
// A nil logger discards output.
func NewDiffStrategy(remote *index.RemoteIndex, comparator *compare.Comparator, logger *slog.Logger) *DiffStrategy {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DiffStrategy{index: remote, comparator: comparator, logger: logger}
}

// Name returns StrategyDiff.
func (s *DiffStrategy) Name() string { return StrategyDiff }

// Resolve returns the closest candidate that is not a full rewrite. The
// ranking is kept on the attempt.
func (s *DiffStrategy) Resolve(ctx context.Context, a *Attempt) (string, error) {
	candidates := a.Candidates
	if len(candidates) == 0 {
		if s.listedDuring(a) {
			s.logger.Debug("index listed during this attempt, skipping refresh", "file", a.File.RelativePath)
			return "", nil
		}
		if _, err := s.index.Refresh(ctx, a.File.Repository, a.Roots); err != nil {
			return "", err
		}
		var err error
		candidates, err = s.index.Lookup(ctx, a.File.Repository, a.Roots, a.File.Name())
		if err != nil {
			return "", err
		}
		if len(candidates) == 0 {
			return "", nil
		}
	}

	local, err := a.File.Content()
	if err != nil {
		return "", err
	}
	ranked, err := s.comparator.RankCandidates(ctx, local, candidates)
	if err != nil {
		return "", err
	}
	a.Ranked = ranked

	best, ok := compare.Best(ranked)
	if !ok {
		s.logger.Debug("every candidate is a full rewrite",
			"file", a.File.RelativePath,
			"candidates", len(ranked),
		)
		return "", nil
	}
	return best.Path, nil
}

// listedDuring reports whether the repository's index was listed after the
// attempt started, so the name lookup already saw a fresh listing.
func (s *DiffStrategy) listedDuring(a *Attempt) bool {
	if a.Started.IsZero() {
		return false
	}
	stats := s.index.Stats(a.File.Repository)
	return stats.Loaded && stats.RefreshedAt.After(a.Started)
}

// ManualStrategy asks the operator to pick from the full remote listing and
// records the choice so the map strategy resolves it next time.
type ManualStrategy struct {
	index    *index.RemoteIndex
	selector selector.Selector
	store    *store.MapStore
	logger   *slog.Logger
}

// NewManualStrategy creates a strategy prompting through sel and recording
// choices in mappings. A nil logger discards output.
func NewManualStrategy(remote *index.RemoteIndex, sel selector.Selector, mappings *store.MapStore, logger *slog.Logger) *ManualStrategy {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ManualStrategy{index: remote, selector: sel, store: mappings, logger: logger}
}

// Name returns StrategyManual.
func (s *ManualStrategy) Name() string { return StrategyManual }

// Resolve prompts over the full remote listing. Dismissing the prompt fails
// with ErrUserCancelled; an unusable answer escalates.
func (s *ManualStrategy) Resolve(ctx context.Context, a *Attempt) (string, error) {
	paths, err := s.index.Paths(ctx, a.File.Repository, a.Roots)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}

	choice, err := s.selector.Select(ctx, a.File.Name(), paths)
	if errors.Is(err, selector.ErrCancelled) {
		return "", fmt.Errorf("%w: %w", ErrUserCancelled, err)
	}
	if err != nil {
		s.logger.Debug("manual selection yielded nothing", "file", a.File.RelativePath, "error", err)
		return "", nil
	}

	if err := s.store.Set(a.File.Repository, a.File.RelativePath, choice); err != nil {
		return "", fmt.Errorf("recording mapping: %w", err)
	}
	return choice, nil
}
