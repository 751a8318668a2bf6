package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/register"
)

var registerName string

var registerCmd = &cobra.Command{
	Use:   "register <project|user> [directory] [-- serve-flags...]",
	Short: "Register 'missile serve' as an MCP server",
	Long: `Add missile to an MCP client configuration.

  project  writes <directory>/.mcp.json (default directory: .)
  user     writes ~/.claude.json

Arguments after -- are passed to 'missile serve'.

Examples:
  missile register project
  missile register user -- --config-dir /etc/missile --selector fzf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "Server name in the client configuration (default: derived from the binary name)")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	positional := args
	var serveArgs []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional, serveArgs = args[:dash], args[dash:]
	}
	if len(positional) == 0 || len(positional) > 2 {
		return fmt.Errorf("expected a scope (project or user) and an optional directory")
	}

	options := register.Options{
		ServerName: registerName,
		Scope:      positional[0],
		ServerArgs: append([]string{"serve"}, serveArgs...),
	}
	if len(positional) == 2 {
		if options.Scope != register.ScopeProject {
			return fmt.Errorf("a directory is only accepted for the %s scope", register.ScopeProject)
		}
		options.Directory = positional[1]
	}

	result, err := register.Run(options)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", result.ServerName, result.ConfigPath)
	return nil
}
