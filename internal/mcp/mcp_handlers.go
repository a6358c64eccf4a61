package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/civilsoul/offlined/core"
	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	cfg   *contract.Config
	mgr   contract.StoreManager
	fetch contract.Fetcher
}

func (h *toolHandler) handleGetCacheStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.mgr.PartitionStore().Status()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cache status failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetQueueStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.mgr.QueueStore().Status()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("queue status failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListQueueItems(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, ok := schema.ParseQueueCategory(request.GetString("category", ""))
	if !ok {
		return mcp.NewToolResultError("invalid category: must be applications, certificate-requests, or interaction-events"), nil
	}

	items, err := h.mgr.QueueStore().Items(category)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("queue listing failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleDrainQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	drainer := h.newDrainer()

	if tag := request.GetString("category", ""); tag != "" {
		category, ok := schema.ParseQueueCategory(tag)
		if !ok {
			return mcp.NewToolResultError("invalid category: must be applications, certificate-requests, or interaction-events"), nil
		}
		result, err := drainer.DrainCategory(ctx, category)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("drain failed: %v", err)), nil
		}
		jsonData, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(jsonData)), nil
	}

	results := drainer.DrainAll(ctx)
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// newDrainer builds a replay routine with silent notification and
// messaging sinks, since an MCP session has no foreground instances.
func (h *toolHandler) newDrainer() *core.Drainer {
	log := slog.New(slog.DiscardHandler)
	dispatcher := core.NewDispatcher(silentHost{}, h.cfg.ProductName, log)
	return core.NewDrainer(h.mgr.QueueStore(), h.fetch, h.cfg.MaxDrainAttempts, dispatcher, silentBroadcaster{}, log)
}

type silentHost struct{}

func (silentHost) ShowNotification(*schema.NotificationRequest) error { return nil }
func (silentHost) ListOpenInstances() []contract.Instance             { return nil }
func (silentHost) FocusInstance(string) error                         { return nil }
func (silentHost) OpenInstance(string) error                          { return nil }

type silentBroadcaster struct{}

func (silentBroadcaster) Broadcast(schema.ClientMessage) int { return 0 }
