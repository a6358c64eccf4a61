package mcp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilsoul/offlined/internal/contract"
	mcp_internal "github.com/civilsoul/offlined/internal/mcp"
	"github.com/civilsoul/offlined/internal/store"
)

func TestNewMCPServer(t *testing.T) {
	cfg := &contract.Config{
		ProductName:      "CivilSoul",
		MaxDrainAttempts: 5,
	}
	mgr := store.NewMockManager()

	s := mcp_internal.NewMCPServer(cfg, mgr, nil)
	require.NotNil(t, s)

	for _, name := range []string{"get_cache_status", "get_queue_status", "list_queue_items", "drain_queue"} {
		tool := s.GetTool(name)
		assert.NotNil(t, tool, "Tool %s should exist", name)
	}
}
