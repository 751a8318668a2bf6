package tools

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/missile/journal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FormatPaths formats remote paths as a numbered list.
func FormatPaths(paths []string, noun string) string {
	if len(paths) == 0 {
		return fmt.Sprintf("No %s found.", noun)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d %s:\n\n", len(paths), noun))
	for _, p := range paths {
		builder.WriteString("  ")
		builder.WriteString(p)
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatHistory formats journal entries newest first, one per line.
func FormatHistory(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "No history recorded."
	}

	var builder strings.Builder
	for _, e := range entries {
		builder.WriteString(fmt.Sprintf("%s  %-10s %s",
			e.At.Local().Format(time.DateTime),
			e.Outcome,
			e.RelativePath,
		))
		if e.RemotePath != "" {
			builder.WriteString(fmt.Sprintf(" -> %s", e.RemotePath))
		}
		if e.Strategy != "" {
			builder.WriteString(fmt.Sprintf(" (%s)", e.Strategy))
		}
		if e.Error != "" {
			builder.WriteString(fmt.Sprintf("\n    %s", e.Error))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

// localPath resolves p against root unless it is already absolute.
func localPath(root string, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
