package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the missile_reindex tool.
type ReindexArgs struct{}

// ReindexFunc relists the remote roots of the repository.
// It is provided by the serve command to avoid circular dependencies.
type ReindexFunc func(ctx context.Context) (files int, elapsed string, err error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a missile_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("missile_reindex started")

	files, elapsed, err := h.DoReindex(ctx)
	if err != nil {
		h.Logger.Error("missile_reindex failed", "error", err)
		return errorResult("Reindex error: %v", err), nil, nil
	}

	h.Logger.Info("missile_reindex complete", "files", files, "elapsed", elapsed)

	return textResult(fmt.Sprintf("Reindex complete: %d remote files in %s", files, elapsed)), nil, nil
}
