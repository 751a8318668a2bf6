package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/missile/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FindArgs defines the input parameters for the missile_find tool.
type FindArgs struct {
	Query      string `json:"query,omitempty" jsonschema:"Words matched against remote path segments (e.g. 'api handlers')"`
	Glob       string `json:"glob,omitempty" jsonschema:"Glob pattern matched against remote absolute paths (e.g. /srv/app/**/*.py). Overrides query."`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FindHandler holds the dependencies for the find tool.
type FindHandler struct {
	Repository string
	Roots      []string
	Index      *index.RemoteIndex
	Logger     *slog.Logger
}

// Handle processes a missile_find request.
func (h *FindHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FindArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" && args.Glob == "" {
		h.Logger.Warn("missile_find called without query or glob")
		return errorResult("Error: query or glob parameter is required"), nil, nil
	}

	var (
		results []string
		err     error
	)
	if args.Glob != "" {
		results, err = h.Index.Glob(ctx, h.Repository, h.Roots, args.Glob, args.MaxResults)
	} else {
		results, err = h.Index.Search(ctx, h.Repository, h.Roots, args.Query, args.MaxResults)
	}
	if err != nil {
		h.Logger.Error("missile_find failed", "query", args.Query, "glob", args.Glob, "error", err)
		return errorResult("Find error: %v", err), nil, nil
	}

	h.Logger.Info("missile_find",
		"query", args.Query,
		"glob", args.Glob,
		"results", len(results),
		"elapsed", time.Since(start),
	)
	return textResult(FormatPaths(results, "remote files")), nil, nil
}
