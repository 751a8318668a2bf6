package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/resolver"
	"github.com/lexandro/missile/syncer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResolveArgs defines the input parameters for the missile_resolve tool.
type ResolveArgs struct {
	Path   string `json:"path" jsonschema:"Local file path, absolute or relative to the repository root"`
	Upload bool   `json:"upload,omitempty" jsonschema:"If true upload the file after resolving it"`
}

// FileSyncer resolves, and possibly uploads, one local file.
type FileSyncer interface {
	Sync(ctx context.Context, absolutePath string) (syncer.Result, error)
}

// ResolveHandler holds the dependencies for the resolve tool.
type ResolveHandler struct {
	Root string
	// Resolve only resolves; Upload resolves and uploads.
	Resolve FileSyncer
	Upload  FileSyncer
	Logger  *slog.Logger
}

// Handle processes a missile_resolve request.
func (h *ResolveHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ResolveArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Path) == "" {
		h.Logger.Warn("missile_resolve called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	target := h.Resolve
	if args.Upload {
		target = h.Upload
	}
	path := localPath(h.Root, args.Path)

	result, err := target.Sync(ctx, path)
	h.Logger.Info("missile_resolve",
		"path", path,
		"upload", args.Upload,
		"outcome", result.Outcome,
		"skipped", result.Skipped,
	)

	switch {
	case result.Skipped:
		return errorResult("Skipped %s: not a regular file inside the repository, or over the size limit", args.Path), nil, nil
	case resolver.IsUnresolved(err):
		return textResult(fmt.Sprintf("No remote path found for %s. Record one with missile_map.", result.Resolution.File.RelativePath)), nil, nil
	case err != nil:
		return errorResult("Resolve error: %v", err), nil, nil
	}

	res := result.Resolution
	verb := "resolved"
	if result.Outcome == journal.OutcomeSynced {
		verb = "uploaded"
	}
	return textResult(fmt.Sprintf("%s: %s -> %s (strategy: %s, %s)",
		verb, res.File.RelativePath, res.RemotePath, res.Strategy, res.Duration.Round(time.Millisecond))), nil, nil
}
