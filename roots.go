package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/config"
)

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Manage the remote roots searched for this repository",
}

var rootsAddCmd = &cobra.Command{
	Use:   "add <remote-dir>...",
	Short: "Add remote directories to search",
	Long: `Add absolute remote directories to the roots of this repository in config.yaml.

Example:
  missile roots add /srv/app /etc/nginx/sites-available`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRootsAdd,
}

var rootsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the remote roots of this repository",
	Args:  cobra.NoArgs,
	RunE:  runRootsList,
}

func init() {
	rootsCmd.AddCommand(rootsAddCmd)
	rootsCmd.AddCommand(rootsListCmd)
	rootCmd.AddCommand(rootsCmd)
}

func runRootsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	roots, err := config.AddRoots(a.cfg.Dir, a.repo.ID, args...)
	if err != nil {
		return err
	}
	a.logger.Info("remote roots updated", "roots", roots)
	for _, root := range roots {
		fmt.Fprintln(cmd.OutOrStdout(), root)
	}
	return nil
}

func runRootsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	roots := a.roots()
	if len(roots) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No remote roots configured for %s.\n", a.repo.ID)
		return nil
	}
	for _, root := range roots {
		fmt.Fprintln(cmd.OutOrStdout(), root)
	}
	return nil
}
