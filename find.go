package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	findGlob  string
	findLimit int
)

var findCmd = &cobra.Command{
	Use:   "find [words...]",
	Short: "Search the remote files of the repository",
	Long: `Search the remote index by words in the path, or by --glob.

Examples:
  missile find settings
  missile find api handlers
  missile find --glob '/srv/app/**/*.html'`,
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVar(&findGlob, "glob", "", "Doublestar pattern matched against remote absolute paths")
	findCmd.Flags().IntVar(&findLimit, "limit", 50, "Maximum results")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	if findGlob == "" && len(args) == 0 {
		return errors.New("pass search words or --glob")
	}

	a, err := newApp(cmd, appOptions{remote: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var results []string
	if findGlob != "" {
		results, err = a.index.Glob(cmd.Context(), a.repo.ID, a.roots(), findGlob, findLimit)
	} else {
		results, err = a.index.Search(cmd.Context(), a.repo.ID, a.roots(), strings.Join(args, " "), findLimit)
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return nil
}
