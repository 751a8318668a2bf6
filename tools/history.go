package tools

import (
	"context"
	"log/slog"

	"github.com/lexandro/missile/journal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HistoryArgs defines the input parameters for the missile_history tool.
type HistoryArgs struct {
	Outcome string `json:"outcome,omitempty" jsonschema:"Only entries with this outcome: synced, resolved, unresolved, cancelled or error"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of entries to return (default 20)"`
}

// HistoryHandler holds the dependencies for the history tool.
type HistoryHandler struct {
	Repository string
	Journal    *journal.Journal
	Logger     *slog.Logger
}

// Handle processes a missile_history request.
func (h *HistoryHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
	entries, err := h.Journal.Recent(ctx, journal.Filter{
		Repository: h.Repository,
		Outcome:    journal.Outcome(args.Outcome),
		Limit:      args.Limit,
	})
	if err != nil {
		h.Logger.Error("missile_history failed", "error", err)
		return errorResult("History error: %v", err), nil, nil
	}

	h.Logger.Info("missile_history", "entries", len(entries))
	return textResult(FormatHistory(entries)), nil, nil
}
