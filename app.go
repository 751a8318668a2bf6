package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/compare"
	"github.com/lexandro/missile/config"
	"github.com/lexandro/missile/gitrepo"
	"github.com/lexandro/missile/index"
	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/resolver"
	"github.com/lexandro/missile/selector"
	"github.com/lexandro/missile/store"
	"github.com/lexandro/missile/syncer"
	"github.com/lexandro/missile/transport"
)

// app holds the components shared by the commands.
// Remote-backed fields are nil unless the command asked for a connection.
type app struct {
	cfg      *config.Config
	repo     gitrepo.Repository
	logger   *slog.Logger
	mappings *store.MapStore
	journal  *journal.Journal

	remote     *transport.SSH
	index      *index.RemoteIndex
	comparator *compare.Comparator
	prompts    *selector.Queue
}

// appOptions selects what newApp sets up.
type appOptions struct {
	// remote dials the host and builds the remote index.
	remote bool
}

// newApp loads configuration, discovers the repository and opens the
// persisted state. Callers must Close the result.
func newApp(cmd *cobra.Command, options appOptions) (*app, error) {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	cfg, err := config.Load(dir, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel, cfg.LogFilePath())

	start := workDir
	if start == "" {
		if start, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}
	start, _ = filepath.Abs(start)
	repo, err := gitrepo.Discover(gitrepo.OSCommandRunner{}, start)
	if err != nil {
		return nil, err
	}
	logger = logger.With("repo", repo.ID)
	logger.Info("starting missile", "command", cmd.Name(), "root", repo.Root, "configDir", cfg.Dir)

	a := &app{cfg: cfg, repo: repo, logger: logger}

	a.mappings = store.NewMapStore(cfg.MapFile())
	if err := a.mappings.Initialize(); err != nil {
		return nil, err
	}
	if err := a.mappings.Load(); err != nil {
		return nil, err
	}

	if a.journal, err = journal.Open(cfg.JournalFile(), logger); err != nil {
		return nil, err
	}

	if options.remote {
		if err := a.connect(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// connect dials the remote host and builds the components that use it.
func (a *app) connect() error {
	if err := a.cfg.ValidateConnection(); err != nil {
		return err
	}
	if len(a.roots()) == 0 {
		a.logger.Warn("no remote roots configured for repository; add one with 'missile roots add'")
	}

	names, err := store.OpenNameCache(a.cfg.NameCacheFile())
	if err != nil {
		return err
	}

	a.remote, err = transport.DialSSH(transport.SSHOptions{
		Host:                  a.cfg.Host,
		Port:                  strconv.Itoa(a.cfg.Port),
		Username:              a.cfg.Username,
		Password:              a.cfg.Password,
		KnownHostsFile:        a.cfg.KnownHosts,
		InsecureIgnoreHostKey: a.cfg.InsecureIgnoreHostKey,
	}, a.logger)
	if err != nil {
		return err
	}

	a.index, err = index.NewRemoteIndex(a.remote, index.Options{
		Exclude: a.cfg.Exclude,
		Cache:   names,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	a.comparator = compare.NewComparator(a.remote, compare.Options{
		Workers: a.cfg.Workers,
		Logger:  a.logger,
	})
	return nil
}

func (a *app) roots() []string {
	return a.cfg.RootsFor(a.repo.ID)
}

// chain builds the resolver chain. The interactive chain ends with the
// manual prompt; the other one reports ambiguity instead.
func (a *app) chain(interactive bool) (*resolver.Chain, error) {
	strategies := []resolver.Strategy{
		resolver.NewMapStrategy(a.mappings),
		resolver.NewNameStrategy(a.index),
		resolver.NewDiffStrategy(a.index, a.comparator, a.logger),
	}
	if interactive {
		sel, err := selector.New(a.cfg.Selector)
		if err != nil {
			return nil, err
		}
		if a.prompts == nil {
			a.prompts = selector.NewQueue(sel, selector.DefaultQueueDepth)
		}
		strategies = append(strategies, resolver.NewManualStrategy(a.index, a.prompts, a.mappings, a.logger))
	}
	return resolver.NewChain(a.cfg.RootsFor, a.logger, strategies...), nil
}

// newSyncer builds a Syncer over chain. dryRun resolves without uploading.
func (a *app) newSyncer(chain *resolver.Chain, dryRun bool) *syncer.Syncer {
	return syncer.New(chain, a.remote, syncer.Options{
		Repository:  a.repo.ID,
		Root:        a.repo.Root,
		Journal:     a.journal,
		MaxFileSize: a.cfg.MaxFileSize,
		DryRun:      dryRun,
		Logger:      a.logger,
	})
}

// refresh relists the remote roots of the repository.
func (a *app) refresh(ctx context.Context) (int, error) {
	entry, err := a.index.Refresh(ctx, a.repo.ID, a.roots())
	if err != nil {
		return 0, err
	}
	return entry.FileCount(), nil
}

// reindex relists the remote roots of the repository. The current entry and
// its cached listing stay in place when the listing fails.
func (a *app) reindex(ctx context.Context) (int, time.Duration, error) {
	start := time.Now()
	files, err := a.refresh(ctx)
	if err != nil {
		return 0, 0, err
	}
	return files, time.Since(start).Round(time.Millisecond), nil
}

// Close releases everything newApp and connect opened.
func (a *app) Close() {
	if a.prompts != nil {
		a.prompts.Close()
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("closing remote index", "error", err)
		}
	}
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Warn("closing remote connection", "error", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("closing journal", "error", err)
		}
	}
}
