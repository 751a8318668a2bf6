package main

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/resolver"
)

var mapList bool

var mapCmd = &cobra.Command{
	Use:   "map <local-file> <remote-path>",
	Short: "Record the remote path of a local file",
	Long: `Record where a local file lives on the remote host. Recorded paths win over
every other strategy. With --list, print the recorded paths of this repository.

Examples:
  missile map settings/prod.py /srv/app/config/settings.py
  missile map --list`,
	Args: func(cmd *cobra.Command, args []string) error {
		if mapList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runMap,
}

var unmapCmd = &cobra.Command{
	Use:   "unmap <local-file>",
	Short: "Forget the recorded remote path of a local file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnmap,
}

func init() {
	mapCmd.Flags().BoolVar(&mapList, "list", false, "List recorded mappings")
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(unmapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if mapList {
		entries := a.mappings.Entries(a.repo.ID)
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No mappings recorded for %s.\n", a.repo.ID)
			return nil
		}
		locals := make([]string, 0, len(entries))
		for local := range entries {
			locals = append(locals, local)
		}
		sort.Strings(locals)
		for _, local := range locals {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", local, entries[local])
		}
		return nil
	}

	file, err := a.changedFile(args[0])
	if err != nil {
		return err
	}
	if !path.IsAbs(args[1]) {
		return fmt.Errorf("remote path %q must be absolute", args[1])
	}
	remote := path.Clean(args[1])
	if err := a.mappings.Set(a.repo.ID, file.RelativePath, remote); err != nil {
		return err
	}
	a.logger.Info("mapping recorded", "file", file.RelativePath, "remote", remote)
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", file.RelativePath, remote)
	return nil
}

func runUnmap(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	file, err := a.changedFile(args[0])
	if err != nil {
		return err
	}
	removed, err := a.mappings.Delete(a.repo.ID, file.RelativePath)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no mapping recorded for %s", file.RelativePath)
	}
	a.logger.Info("mapping removed", "file", file.RelativePath)
	fmt.Fprintf(cmd.OutOrStdout(), "removed mapping for %s\n", file.RelativePath)
	return nil
}

// changedFile resolves a command-line path against the working directory.
func (a *app) changedFile(p string) (resolver.ChangedFile, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return resolver.ChangedFile{}, fmt.Errorf("resolving %s: %w", p, err)
	}
	return resolver.NewChangedFile(a.repo.ID, a.repo.Root, abs)
}
