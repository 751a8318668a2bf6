package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/ignore"
	"github.com/lexandro/missile/syncer"
	"github.com/lexandro/missile/watcher"
)

var (
	watchDryRun          bool
	watchRefreshInterval time.Duration
	watchDebounce        time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Upload every saved file of the checkout to its remote path",
	Long: `Watch the git checkout and upload each created or modified file to the remote
path it resolves to. Ambiguous files open an interactive prompt, one at a time.

Examples:
  missile watch --host deploy.example.com --username deploy
  missile watch --dry-run
  missile watch --refresh-interval 10m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "Resolve and log remote paths without uploading")
	watchCmd.Flags().DurationVar(&watchRefreshInterval, "refresh-interval", 0, "Relist the remote roots at this interval (0 disables)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounceInterval, "Quiet period before a batch of changes is handled")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{remote: true})
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.chain(true)
	if err != nil {
		return err
	}

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          a.repo.Root,
		CustomPatterns:   a.cfg.Ignore,
		MaxFileSizeBytes: a.cfg.MaxFileSize,
	})
	fileWatcher, err := watcher.NewWatcher(a.repo.Root, matcher, watchDebounce, a.logger)
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer fileWatcher.Close()
	go fileWatcher.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchRefreshInterval > 0 {
		go syncer.RefreshPeriodically(ctx, watchRefreshInterval, func(ctx context.Context) error {
			_, err := a.refresh(ctx)
			return err
		}, a.logger)
	}

	mode := "uploading"
	if watchDryRun {
		mode = "dry run"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "missile: watching %s (%s, repository %s), Ctrl+C to stop\n", a.repo.Root, mode, a.repo.ID)

	a.newSyncer(chain, watchDryRun).Run(ctx, fileWatcher.Events())
	a.logger.Info("watch stopped")
	return nil
}
