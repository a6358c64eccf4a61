// Package host provides contract.Host implementations.
package host

import (
	"log/slog"
	"sync"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// LogHost is the default host used by the daemon. Notifications are
// written to the structured log and open instances are tracked from
// messaging channel registrations.
type LogHost struct {
	mu        sync.RWMutex
	instances map[string]contract.Instance
	log       *slog.Logger
}

// NewLogHost returns a host with no open instances.
func NewLogHost(log *slog.Logger) *LogHost {
	return &LogHost{instances: make(map[string]contract.Instance), log: log}
}

// ShowNotification logs the notification at info level.
func (h *LogHost) ShowNotification(n *schema.NotificationRequest) error {
	h.log.Info("notification", "title", n.Title, "body", n.Body, "tag", n.Tag, "url", n.Data.URL)
	return nil
}

// ListOpenInstances reports the tracked foreground instances.
func (h *LogHost) ListOpenInstances() []contract.Instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]contract.Instance, 0, len(h.instances))
	for _, inst := range h.instances {
		out = append(out, inst)
	}
	return out
}

// FocusInstance logs the focus request.
func (h *LogHost) FocusInstance(id string) error {
	h.log.Info("focus instance", "id", id)
	return nil
}

// OpenInstance logs the open request.
func (h *LogHost) OpenInstance(url string) error {
	h.log.Info("open instance", "url", url)
	return nil
}

// Track records an open instance, typically on channel connect.
func (h *LogHost) Track(inst contract.Instance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instances[inst.ID] = inst
}

// Untrack removes an instance, typically on channel disconnect.
func (h *LogHost) Untrack(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.instances, id)
}
