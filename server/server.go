package server

import (
	"github.com/lexandro/missile/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// Handlers groups the tool handlers served over MCP.
// History is nil when the journal is disabled.
type Handlers struct {
	Resolve *tools.ResolveHandler
	Map     *tools.MapHandler
	Find    *tools.FindHandler
	Status  *tools.StatusHandler
	Reindex *tools.ReindexHandler
	History *tools.HistoryHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "missile",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server knows where the files of the current repository live on the remote host.

Use these tools instead of guessing remote paths or running ssh/scp by hand:
- Use missile_resolve to find the remote path of a local file, and with upload=true to push it
- Use missile_map to record a remote path when missile_resolve finds none
- Use missile_find to look up remote files by name words or glob
- Use missile_reindex after files were added or moved on the remote host`,
		},
	)

	// Register missile_resolve tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "missile_resolve",
		Description: `Resolve the remote path of a local file, optionally uploading it.

Strategies are tried in order:
  - map: a path recorded earlier with missile_map or a manual choice
  - name: the only remote file with the same filename
  - diff: the remote candidate whose content differs least from the local file

No interactive prompt is shown; an ambiguous file is reported as unresolved.`,
	}, handlers.Resolve.Handle)

	// Register missile_map tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "missile_map",
		Description: "Record the remote path of a local file, or remove the recorded path with remove=true. Recorded paths take precedence over every other strategy.",
	}, handlers.Map.Handle)

	// Register missile_find tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "missile_find",
		Description: `Find remote files of this repository from the remote index.

Examples:
  - query "api handlers" - paths containing both words
  - glob "/srv/app/**/*.py" - Python files below /srv/app`,
	}, handlers.Find.Handle)

	// Register missile_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "missile_status",
		Description: "Show repository, remote roots, index size, recorded mappings, sync outcomes and uptime.",
	}, handlers.Status.Handle)

	// Register missile_reindex tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "missile_reindex",
		Description: "Relist the remote roots and rebuild the remote index from scratch.",
	}, handlers.Reindex.Handle)

	if handlers.History != nil {
		// Register missile_history tool
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        "missile_history",
			Description: "List recent resolution and sync outcomes, newest first.",
		}, handlers.History.Handle)
	}

	return mcpServer
}
