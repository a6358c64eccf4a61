package core

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilsoul/offlined/internal/store"
	"github.com/civilsoul/offlined/schema"
)

func newTestDrainer(queue *store.MockQueueStore, fetch *fakeFetcher, maxAttempts int) (*Drainer, *fakeHost, *recordingBroadcaster) {
	h := &fakeHost{}
	b := &recordingBroadcaster{clients: 1}
	dispatcher := NewDispatcher(h, "CivilSoul", testLogger())
	return NewDrainer(queue, fetch, maxAttempts, dispatcher, b, testLogger()), h, b
}

func enqueueJSON(t *testing.T, queue *store.MockQueueStore, category schema.QueueCategory, itemType, payload string) int64 {
	t.Helper()
	id, err := queue.Enqueue(&schema.QueueItem{
		Category: category,
		Type:     itemType,
		Token:    "tok-123",
		Data:     json.RawMessage(payload),
	})
	require.NoError(t, err)
	return id
}

func TestDrainCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("replays in enqueue order", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":2}`)
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":3}`)

		fetch := newFakeFetcher()
		fetch.respond("POST", "/api/applications", okResponse("accepted"))
		drainer, _, _ := newTestDrainer(queue, fetch, 5)

		result, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Replayed)
		assert.False(t, result.Failed)
		assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, fetch.bodyLog())

		remaining, err := queue.Items(schema.CategoryApplications)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("first failure stops the cycle and retains items", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":2}`)

		fetch := newFakeFetcher()
		fetch.fail("POST", "/api/applications", errUnreachable)
		drainer, _, _ := newTestDrainer(queue, fetch, 5)

		result, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.Zero(t, result.Replayed)
		assert.True(t, result.Failed)

		remaining, err := queue.Items(schema.CategoryApplications)
		require.NoError(t, err)
		require.Len(t, remaining, 2, "failed items stay queued")
		assert.Equal(t, 1, remaining[0].Attempts, "head item recorded the attempt")
		assert.Equal(t, 0, remaining[1].Attempts, "later items were never tried")
		assert.Len(t, fetch.callLog(), 1, "cycle stopped at the first failure")
	})

	t.Run("upstream rejection counts as failure", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)

		fetch := newFakeFetcher()
		fetch.respond("POST", "/api/applications", &schema.CachedResponse{Status: http.StatusUnprocessableEntity})
		drainer, _, _ := newTestDrainer(queue, fetch, 5)

		result, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.True(t, result.Failed)

		remaining, err := queue.Items(schema.CategoryApplications)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, 1, remaining[0].Attempts)
	})

	t.Run("exhausted items move to the dead letter table", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)

		fetch := newFakeFetcher()
		fetch.fail("POST", "/api/applications", errUnreachable)
		drainer, _, _ := newTestDrainer(queue, fetch, 2)

		// First cycle records the attempt; second cycle exhausts the budget.
		result, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.True(t, result.Failed)

		result, err = drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Buried)

		remaining, err := queue.Items(schema.CategoryApplications)
		require.NoError(t, err)
		assert.Empty(t, remaining)
		require.Len(t, queue.DeadItems(), 1)
		assert.Equal(t, 2, queue.DeadItems()[0].Attempts)
	})

	t.Run("burying unblocks the items behind it", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"bad":true}`)
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"good":true}`)

		// Fail only the first payload; accept everything else.
		fetch := &scriptedFetcher{fn: func(req *schema.Request) (*schema.CachedResponse, error) {
			if string(req.Body) == `{"bad":true}` {
				return nil, errUnreachable
			}
			return okResponse("accepted"), nil
		}}
		h := &fakeHost{}
		dispatcher := NewDispatcher(h, "CivilSoul", testLogger())
		drainer := NewDrainer(queue, fetch, 1, dispatcher, &recordingBroadcaster{}, testLogger())

		result, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Buried)
		assert.Equal(t, 1, result.Replayed)
		assert.False(t, result.Failed)
	})

	t.Run("malformed interaction items are dropped", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryInteractions, "share", `{"target":1}`)
		enqueueJSON(t, queue, schema.CategoryInteractions, schema.InteractionLike, `{"target":2}`)

		fetch := newFakeFetcher()
		fetch.respond("POST", "/api/interactions/likes", okResponse("accepted"))
		drainer, _, _ := newTestDrainer(queue, fetch, 5)

		result, err := drainer.DrainCategory(ctx, schema.CategoryInteractions)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Replayed)

		remaining, err := queue.Items(schema.CategoryInteractions)
		require.NoError(t, err)
		assert.Empty(t, remaining, "unknown type was dropped, like was replayed")
	})

	t.Run("interaction types select their endpoints", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryInteractions, schema.InteractionLike, `{"post":9}`)
		enqueueJSON(t, queue, schema.CategoryInteractions, schema.InteractionComment, `{"post":9,"text":"hi"}`)

		fetch := newFakeFetcher()
		fetch.respond("POST", "/api/interactions/likes", okResponse("accepted"))
		fetch.respond("POST", "/api/interactions/comments", okResponse("accepted"))
		drainer, _, _ := newTestDrainer(queue, fetch, 5)

		result, err := drainer.DrainCategory(ctx, schema.CategoryInteractions)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Replayed)
		assert.Equal(t, []string{"POST /api/interactions/likes", "POST /api/interactions/comments"}, fetch.callLog())
	})

	t.Run("successful drain announces to user and channel", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)

		fetch := newFakeFetcher()
		fetch.respond("POST", "/api/applications", okResponse("accepted"))
		drainer, h, b := newTestDrainer(queue, fetch, 5)

		_, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)

		require.Len(t, h.shown(), 1)
		assert.Equal(t, "Applications synced", h.shown()[0].Title)
		require.Len(t, b.byType(schema.MessageSync), 1)
	})

	t.Run("empty queue announces nothing", func(t *testing.T) {
		queue := store.NewMockManager().Queue
		drainer, h, b := newTestDrainer(queue, newFakeFetcher(), 5)

		result, err := drainer.DrainCategory(ctx, schema.CategoryApplications)
		require.NoError(t, err)
		assert.Zero(t, result.Replayed)
		assert.Empty(t, h.shown())
		assert.Empty(t, b.byType(schema.MessageSync))
	})
}

func TestDrainReplayCarriesAuth(t *testing.T) {
	queue := store.NewMockManager().Queue
	enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)

	var gotAuth string
	fetch := &scriptedFetcher{fn: func(req *schema.Request) (*schema.CachedResponse, error) {
		gotAuth = req.Header.Get("Authorization")
		return okResponse("accepted"), nil
	}}
	dispatcher := NewDispatcher(&fakeHost{}, "CivilSoul", testLogger())
	drainer := NewDrainer(queue, fetch, 5, dispatcher, &recordingBroadcaster{}, testLogger())

	_, err := drainer.DrainCategory(context.Background(), schema.CategoryApplications)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestDrainAll(t *testing.T) {
	queue := store.NewMockManager().Queue
	enqueueJSON(t, queue, schema.CategoryApplications, "", `{"n":1}`)
	enqueueJSON(t, queue, schema.CategoryCertificates, "", `{"n":2}`)
	enqueueJSON(t, queue, schema.CategoryInteractions, schema.InteractionLike, `{"n":3}`)

	fetch := newFakeFetcher()
	fetch.respond("POST", "/api/applications", okResponse("accepted"))
	fetch.respond("POST", "/api/certificates/requests", okResponse("accepted"))
	fetch.fail("POST", "/api/interactions/likes", errUnreachable)
	drainer, _, _ := newTestDrainer(queue, fetch, 5)

	results := drainer.DrainAll(context.Background())
	require.Len(t, results, 3)

	byCategory := make(map[schema.QueueCategory]schema.DrainResult)
	for _, res := range results {
		byCategory[res.Category] = res
	}
	assert.Equal(t, 1, byCategory[schema.CategoryApplications].Replayed)
	assert.Equal(t, 1, byCategory[schema.CategoryCertificates].Replayed)
	assert.True(t, byCategory[schema.CategoryInteractions].Failed, "one stuck queue does not block the others")
}

// scriptedFetcher runs an arbitrary response function.
type scriptedFetcher struct {
	fn func(req *schema.Request) (*schema.CachedResponse, error)
}

func (f *scriptedFetcher) Do(_ context.Context, req *schema.Request) (*schema.CachedResponse, error) {
	return f.fn(req)
}
