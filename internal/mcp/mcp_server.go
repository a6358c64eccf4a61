// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/civilsoul/offlined/internal/contract"
)

// NewMCPServer initializes and configures the offlined MCP server without
// starting it. This is exposed for unit testing.
func NewMCPServer(cfg *contract.Config, mgr contract.StoreManager, fetch contract.Fetcher) *server.MCPServer {
	s := server.NewMCPServer(
		"Offlined Agent Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		cfg:   cfg,
		mgr:   mgr,
		fetch: fetch,
	}

	// --- 1. Tool: get_cache_status ---
	s.AddTool(mcp.NewTool("get_cache_status",
		mcp.WithDescription("Inspect the cache partitions: entry counts per partition and storage details."),
	), h.handleGetCacheStatus)

	// --- 2. Tool: get_queue_status ---
	s.AddTool(mcp.NewTool("get_queue_status",
		mcp.WithDescription("Inspect the offline mutation queues: pending and dead-letter counts per category."),
	), h.handleGetQueueStatus)

	// --- 3. Tool: list_queue_items ---
	s.AddTool(mcp.NewTool("list_queue_items",
		mcp.WithDescription("List the queued mutations for one category in enqueue order."),
		mcp.WithString("category", mcp.Description("Queue category to list."), mcp.Required(),
			mcp.Enum("applications", "certificate-requests", "interaction-events")),
	), h.handleListQueueItems)

	// --- 4. Tool: drain_queue ---
	s.AddTool(mcp.NewTool("drain_queue",
		mcp.WithDescription("Replay queued offline mutations against the upstream. Drains one category or all of them."),
		mcp.WithString("category", mcp.Description("Queue category to drain (drains all when omitted)."),
			mcp.Enum("applications", "certificate-requests", "interaction-events")),
	), h.handleDrainQueue)

	return s
}

// StartMCPServer starts the offlined MCP server on stdio.
func StartMCPServer(_ context.Context, cfg *contract.Config, mgr contract.StoreManager, fetch contract.Fetcher) error {
	s := NewMCPServer(cfg, mgr, fetch)
	return server.ServeStdio(s)
}
