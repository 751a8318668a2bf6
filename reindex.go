package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Relist the remote roots of the repository",
	Long: `List the configured remote roots of this repository again and replace the
cached listing. The previous listing is kept when the remote host is unreachable.
Run it after files were added or moved on the remote host.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{remote: true})
	if err != nil {
		return err
	}
	defer a.Close()

	files, elapsed, err := a.reindex(cmd.Context())
	if err != nil {
		return err
	}
	a.logger.Info("reindex complete", "files", files, "elapsed", elapsed)
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d remote files under %d roots in %s\n", files, len(a.roots()), elapsed)
	return nil
}
