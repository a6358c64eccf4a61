package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilsoul/offlined/core"
	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/internal/host"
	"github.com/civilsoul/offlined/internal/store"
	"github.com/civilsoul/offlined/schema"
)

// unreachableFetcher fails every request; the sync handlers under test
// never reach the network because their queues are empty.
type unreachableFetcher struct{}

func (unreachableFetcher) Do(context.Context, *schema.Request) (*schema.CachedResponse, error) {
	return nil, errors.New("network unreachable")
}

// newSyncAgent builds an active agent over the in-memory store.
func newSyncAgent(t *testing.T) *core.Agent {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	agent := core.NewAgent(core.AgentDeps{
		Store:   store.NewMockManager(),
		Fetch:   unreachableFetcher{},
		Host:    host.NewLogHost(log),
		Channel: noBroadcast{},
		Log:     log,
		Config: &contract.Config{
			VersionTag:       "v1",
			ProductName:      "CivilSoul",
			MaxDrainAttempts: 5,
			APIPrefixes:      contract.DefaultAPIPrefixes,
			IdentityPaths:    contract.DefaultIdentityPaths,
			ImageExtensions:  contract.DefaultImageExtensions,
			ImageHosts:       contract.DefaultImageHosts,
		},
	})
	require.NoError(t, agent.Install())
	require.NoError(t, agent.Activate())
	return agent
}

func TestHandleSync(t *testing.T) {
	t.Run("unrecognized category is acknowledged without a drain", func(t *testing.T) {
		handler := handleSync(newSyncAgent(t))
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/sync?category=bogus", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("recognized category reports the drain result", func(t *testing.T) {
		handler := handleSync(newSyncAgent(t))
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/sync?category=applications", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var result schema.DrainResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, schema.CategoryApplications, result.Category)
		assert.False(t, result.Failed)
	})

	t.Run("only POST is accepted", func(t *testing.T) {
		handler := handleSync(newSyncAgent(t))
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/sync?category=applications", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
