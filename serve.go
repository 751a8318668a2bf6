package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/lexandro/missile/server"
	"github.com/lexandro/missile/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolver to MCP clients over stdio",
	Long: `Run an MCP server on stdin/stdout exposing missile_resolve, missile_map,
missile_find, missile_status, missile_reindex and missile_history.

There is no interactive prompt in this mode: ambiguous files are reported as
unresolved so the client can record a mapping with missile_map.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	a, err := newApp(cmd, appOptions{remote: true})
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.chain(false)
	if err != nil {
		return err
	}

	handlers := server.Handlers{
		Resolve: &tools.ResolveHandler{
			Root:    a.repo.Root,
			Resolve: a.newSyncer(chain, true),
			Upload:  a.newSyncer(chain, false),
			Logger:  a.logger,
		},
		Map: &tools.MapHandler{
			Repository: a.repo.ID,
			Root:       a.repo.Root,
			Store:      a.mappings,
			Logger:     a.logger,
		},
		Find: &tools.FindHandler{
			Repository: a.repo.ID,
			Roots:      a.roots(),
			Index:      a.index,
			Logger:     a.logger,
		},
		Status: &tools.StatusHandler{
			Repository: a.repo.ID,
			Root:       a.repo.Root,
			Roots:      a.roots(),
			Index:      a.index,
			Store:      a.mappings,
			Journal:    a.journal,
			StartTime:  startTime,
			Logger:     a.logger,
		},
		Reindex: &tools.ReindexHandler{
			Logger: a.logger,
			DoReindex: func(ctx context.Context) (int, string, error) {
				files, elapsed, err := a.reindex(ctx)
				if err != nil {
					return 0, "", err
				}
				return files, elapsed.String(), nil
			},
		},
		History: &tools.HistoryHandler{
			Repository: a.repo.ID,
			Journal:    a.journal,
			Logger:     a.logger,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mcpServer := server.Setup(handlers)
	a.logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		a.logger.Error("MCP server error", "error", err)
		return err
	}
	return nil
}
