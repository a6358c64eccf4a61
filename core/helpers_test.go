package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/internal/store"
	"github.com/civilsoul/offlined/schema"
)

// errUnreachable simulates a network-level failure.
var errUnreachable = errors.New("network unreachable")

// testLogger discards all output.
func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestPartition builds a registry-backed partition over the in-memory store.
func newTestPartition(name string) (*Partition, *store.MockPartitionStore) {
	mock := store.NewMockManager()
	reg := NewRegistry(mock.Partition, testLogger())
	return reg.OpenPartition(name), mock.Partition
}

// fakeFetcher is a scripted contract.Fetcher. Responses and failures are
// keyed by "METHOD URL"; unscripted requests fail as unreachable.
type fakeFetcher struct {
	mu     sync.Mutex
	resps  map[string]*schema.CachedResponse
	errs   map[string]error
	calls  []string
	bodies []string
}

var _ contract.Fetcher = &fakeFetcher{}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		resps: make(map[string]*schema.CachedResponse),
		errs:  make(map[string]error),
	}
}

func (f *fakeFetcher) respond(method, url string, resp *schema.CachedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resps[method+" "+url] = resp
	delete(f.errs, method+" "+url)
}

func (f *fakeFetcher) fail(method, url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method+" "+url] = err
	delete(f.resps, method+" "+url)
}

func (f *fakeFetcher) Do(_ context.Context, req *schema.Request) (*schema.CachedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := req.Method + " " + req.URL
	f.calls = append(f.calls, key)
	f.bodies = append(f.bodies, string(req.Body))
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if resp, ok := f.resps[key]; ok {
		return resp.Clone(), nil
	}
	return nil, errUnreachable
}

func (f *fakeFetcher) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeFetcher) bodyLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.bodies))
	copy(out, f.bodies)
	return out
}

// recordingBroadcaster captures broadcast messages.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []schema.ClientMessage
	clients  int
}

var _ contract.Broadcaster = &recordingBroadcaster{}

func (b *recordingBroadcaster) Broadcast(msg schema.ClientMessage) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	return b.clients
}

func (b *recordingBroadcaster) byType(msgType string) []schema.ClientMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []schema.ClientMessage
	for _, msg := range b.messages {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// fakeHost records notifications and navigation calls.
type fakeHost struct {
	mu            sync.Mutex
	notifications []schema.NotificationRequest
	instances     []contract.Instance
	focused       []string
	opened        []string
	showErr       error
}

var _ contract.Host = &fakeHost{}

func (h *fakeHost) ShowNotification(n *schema.NotificationRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.showErr != nil {
		return h.showErr
	}
	h.notifications = append(h.notifications, *n)
	return nil
}

func (h *fakeHost) ListOpenInstances() []contract.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instances
}

func (h *fakeHost) FocusInstance(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.focused = append(h.focused, id)
	return nil
}

func (h *fakeHost) OpenInstance(url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = append(h.opened, url)
	return nil
}

func (h *fakeHost) shown() []schema.NotificationRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]schema.NotificationRequest, len(h.notifications))
	copy(out, h.notifications)
	return out
}
