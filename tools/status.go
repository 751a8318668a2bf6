package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/missile/index"
	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the missile_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Repository string
	Root       string
	Roots      []string
	Index      *index.RemoteIndex
	Store      *store.MapStore
	// Journal is optional.
	Journal   *journal.Journal
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a missile_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	stats := h.Index.Stats(h.Repository)
	mappings := h.Store.Count(h.Repository)
	uptime := time.Since(h.StartTime)

	h.Logger.Info("missile_status",
		"repo", h.Repository,
		"files", stats.Files,
		"mappings", mappings,
		"uptime", uptime,
	)

	builder.WriteString("=== missile Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Repository: %s\n", h.Repository))
	builder.WriteString(fmt.Sprintf("Local root: %s\n", h.Root))
	if len(h.Roots) == 0 {
		builder.WriteString("Remote roots: none configured (missile roots add <path>)\n")
	} else {
		builder.WriteString(fmt.Sprintf("Remote roots: %s\n", strings.Join(h.Roots, ", ")))
	}
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Recorded mappings: %d\n", mappings))

	if stats.Loaded {
		builder.WriteString(fmt.Sprintf("Remote index: %d files, %d distinct names", stats.Files, stats.Names))
		if !stats.RefreshedAt.IsZero() {
			builder.WriteString(fmt.Sprintf(", listed %s ago", formatDuration(time.Since(stats.RefreshedAt))))
		}
		builder.WriteString("\n")
	} else {
		builder.WriteString("Remote index: not built yet\n")
	}

	if h.Journal != nil {
		counts, err := h.Journal.Counts(ctx, h.Repository)
		if err != nil {
			h.Logger.Warn("missile_status could not read journal", "error", err)
		} else if len(counts) > 0 {
			builder.WriteString("\nOutcomes:\n")
			outcomes := make([]journal.Outcome, 0, len(counts))
			for outcome := range counts {
				outcomes = append(outcomes, outcome)
			}
			sort.Slice(outcomes, func(i, j int) bool {
				return counts[outcomes[i]] > counts[outcomes[j]]
			})
			for _, outcome := range outcomes {
				builder.WriteString(fmt.Sprintf("  %-12s %d\n", outcome, counts[outcome]))
			}
		}
	}

	return textResult(builder.String()), nil, nil
}
