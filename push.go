package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/ignore"
	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/resolver"
)

var (
	resolveNoPrompt bool
	pushNoPrompt    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>...",
	Short: "Print the remote path of local files without uploading",
	Long: `Resolve the remote path of each file. Directories are walked, honoring
.gitignore, .missileignore and --ignore. Manual choices are recorded.

Examples:
  missile resolve src/app/views.py
  missile resolve --no-prompt src/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFiles(cmd, args, true, !resolveNoPrompt)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <path>...",
	Short: "Resolve and upload local files once",
	Long: `Resolve and upload each file, as watch does for saved files. Directories are
walked, honoring .gitignore, .missileignore and --ignore.

Examples:
  missile push src/app/views.py templates/base.html
  missile push --no-prompt .`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFiles(cmd, args, false, !pushNoPrompt)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveNoPrompt, "no-prompt", false, "Report ambiguous files instead of prompting")
	pushCmd.Flags().BoolVar(&pushNoPrompt, "no-prompt", false, "Skip ambiguous files instead of prompting")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(pushCmd)
}

func runFiles(cmd *cobra.Command, args []string, dryRun bool, interactive bool) error {
	a, err := newApp(cmd, appOptions{remote: true})
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.chain(interactive)
	if err != nil {
		return err
	}

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          a.repo.Root,
		CustomPatterns:   a.cfg.Ignore,
		MaxFileSizeBytes: a.cfg.MaxFileSize,
	})
	files, err := collectFiles(args, matcher)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Prompts are serialized by the queue, so workers only overlap on remote I/O.
	reports := syncFiles(ctx, a.newSyncer(chain, dryRun), files, a.cfg.Workers, a.logger)
	failed := printReports(cmd.OutOrStdout(), reports)
	if failed > 0 {
		return fmt.Errorf("%d of %d files not handled", failed, len(reports))
	}
	return nil
}

// printReports writes one line per file and returns how many were not
// resolved or uploaded.
func printReports(w io.Writer, reports []fileReport) int {
	failed := 0
	for _, r := range reports {
		res := r.result.Resolution
		switch {
		case r.result.Skipped:
			fmt.Fprintf(w, "skipped     %s\n", r.path)
		case errors.Is(r.err, resolver.ErrUserCancelled):
			failed++
			fmt.Fprintf(w, "cancelled   %s\n", res.File.RelativePath)
		case resolver.IsUnresolved(r.err):
			failed++
			fmt.Fprintf(w, "unresolved  %s\n", res.File.RelativePath)
		case r.err != nil:
			failed++
			fmt.Fprintf(w, "error       %s: %v\n", r.path, r.err)
		case r.result.Outcome == journal.OutcomeSynced:
			fmt.Fprintf(w, "uploaded    %s -> %s (%s)\n", res.File.RelativePath, res.RemotePath, res.Strategy)
		default:
			fmt.Fprintf(w, "resolved    %s -> %s (%s)\n", res.File.RelativePath, res.RemotePath, res.Strategy)
		}
	}
	return failed
}
