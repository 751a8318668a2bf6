package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lexandro/missile/compare"
)

var (
	// ErrAmbiguityUnresolved means no strategy found a safe single candidate.
	ErrAmbiguityUnresolved = errors.New("no remote path found")
	// ErrUserCancelled means the operator dismissed the manual prompt.
	ErrUserCancelled = errors.New("manual resolution cancelled")
)

// IsUnresolved reports whether err is an expected "no mapping found" outcome
// rather than a failure.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrAmbiguityUnresolved) || errors.Is(err, ErrUserCancelled)
}

// Strategy names.
const (
	StrategyMap    = "map"
	StrategyName   = "name"
	StrategyDiff   = "diff"
	StrategyManual = "manual"
)

// Attempt carries state between the strategies of one resolution.
type Attempt struct {
	File  ChangedFile
	Roots []string

	// Started is when the chain began resolving File.
	Started time.Time

	// Candidates is set by the name strategy when a filename is ambiguous.
	Candidates []string

	// Ranked is set by the diff strategy.
	Ranked []compare.Ranked
}

// Strategy tries to resolve the remote path of a file.
// An empty path with a nil error escalates to the next strategy.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, attempt *Attempt) (string, error)
}

// Resolution is the outcome of one pass through the chain.
type Resolution struct {
	ID         string
	File       ChangedFile
	RemotePath string
	// Strategy is the name of the strategy that produced RemotePath.
	Strategy string
	Duration time.Duration
}

// RootsFunc returns the remote roots configured for a repository.
type RootsFunc func(repository string) []string

// Chain runs strategies in order until one yields a remote path.
type Chain struct {
	strategies []Strategy
	roots      RootsFunc
	logger     *slog.Logger
}

// NewChain creates a chain trying strategies in the given order.
func NewChain(roots RootsFunc, logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Chain{
		strategies: strategies,
		roots:      roots,
		logger:     logger,
	}
}

// Resolve finds the remote path of file. Unresolved outcomes are reported
// with errors matched by IsUnresolved; anything else aborted the attempt.
func (c *Chain) Resolve(ctx context.Context, file ChangedFile) (Resolution, error) {
	start := time.Now()
	res := Resolution{ID: uuid.NewString(), File: file}
	attempt := &Attempt{File: file, Roots: c.roots(file.Repository), Started: start}
	logger := c.logger.With("id", res.ID, "repo", file.Repository, "file", file.RelativePath)

	for _, strategy := range c.strategies {
		remote, err := strategy.Resolve(ctx, attempt)
		if err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("%s strategy: %w", strategy.Name(), err)
		}
		if remote == "" {
			logger.Debug("strategy escalated", "strategy", strategy.Name())
			continue
		}

		res.RemotePath = remote
		res.Strategy = strategy.Name()
		res.Duration = time.Since(start)
		logger.Debug("resolved",
			"strategy", res.Strategy,
			"remote", remote,
			"duration", res.Duration,
		)
		return res, nil
	}

	res.Duration = time.Since(start)
	return res, ErrAmbiguityUnresolved
}
