package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/tools"
)

var (
	historyOutcome string
	historyLimit   int
	historyAll     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent resolution and sync outcomes",
	Long: `Show the newest journal entries of this repository.

Examples:
  missile history
  missile history --outcome unresolved --limit 50
  missile history --all`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "Only show one outcome: synced, resolved, unresolved, cancelled, error")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Include every repository")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	filter := journal.Filter{
		Repository: a.repo.ID,
		Outcome:    journal.Outcome(historyOutcome),
		Limit:      historyLimit,
	}
	if historyAll {
		filter.Repository = ""
	}
	entries, err := a.journal.Recent(cmd.Context(), filter)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), tools.FormatHistory(entries))
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
