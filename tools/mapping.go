package tools

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/lexandro/missile/resolver"
	"github.com/lexandro/missile/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MapArgs defines the input parameters for the missile_map tool.
type MapArgs struct {
	Path   string `json:"path" jsonschema:"Local file path, absolute or relative to the repository root"`
	Remote string `json:"remote,omitempty" jsonschema:"Absolute remote path the file syncs to"`
	Remove bool   `json:"remove,omitempty" jsonschema:"If true delete the recorded mapping instead"`
}

// MapHandler holds the dependencies for the map tool.
type MapHandler struct {
	Repository string
	Root       string
	Store      *store.MapStore
	Logger     *slog.Logger
}

// Handle processes a missile_map request.
func (h *MapHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args MapArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Path) == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	file, err := resolver.NewChangedFile(h.Repository, h.Root, localPath(h.Root, args.Path))
	if err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	if args.Remove {
		removed, err := h.Store.Delete(h.Repository, file.RelativePath)
		if err != nil {
			h.Logger.Error("missile_map remove failed", "path", file.RelativePath, "error", err)
			return errorResult("Unmap error: %v", err), nil, nil
		}
		if !removed {
			return textResult(fmt.Sprintf("No mapping recorded for %s.", file.RelativePath)), nil, nil
		}
		h.Logger.Info("missile_map removed", "path", file.RelativePath)
		return textResult(fmt.Sprintf("removed mapping for %s", file.RelativePath)), nil, nil
	}

	if !path.IsAbs(args.Remote) {
		return errorResult("Error: remote must be an absolute path, got %q", args.Remote), nil, nil
	}
	remote := path.Clean(args.Remote)
	if err := h.Store.Set(h.Repository, file.RelativePath, remote); err != nil {
		h.Logger.Error("missile_map failed", "path", file.RelativePath, "error", err)
		return errorResult("Map error: %v", err), nil, nil
	}

	h.Logger.Info("missile_map", "path", file.RelativePath, "remote", remote)
	return textResult(fmt.Sprintf("mapped: %s -> %s", file.RelativePath, remote)), nil, nil
}
