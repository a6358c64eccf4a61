package schema

import (
	"encoding/json"
	"time"
)

// QueueCategory names a durable mutation queue.
type QueueCategory string

// Recognized queue categories. Sync triggers carrying any other tag are ignored.
const (
	CategoryApplications QueueCategory = "applications"
	CategoryCertificates QueueCategory = "certificate-requests"
	CategoryInteractions QueueCategory = "interaction-events"
)

// AllCategories lists every recognized category in a stable order.
var AllCategories = []QueueCategory{
	CategoryApplications,
	CategoryCertificates,
	CategoryInteractions,
}

// ParseQueueCategory maps a sync trigger tag to a category.
// The second return is false for unrecognized tags.
func ParseQueueCategory(tag string) (QueueCategory, bool) {
	switch QueueCategory(tag) {
	case CategoryApplications, CategoryCertificates, CategoryInteractions:
		return QueueCategory(tag), true
	}
	return "", false
}

// Interaction event types. The type selects the replay endpoint.
const (
	InteractionLike    = "like"
	InteractionComment = "comment"
)

// QueueItem is one queued offline mutation. Items are consumed strictly
// in enqueue order within their category and removed only after the
// corresponding network call is accepted.
type QueueItem struct {
	ID       int64           `json:"id"`
	Category QueueCategory   `json:"category"`
	Type     string          `json:"type,omitempty"`
	Token    string          `json:"token"`
	Data     json.RawMessage `json:"data"`
	Attempts int             `json:"attempts"`
	Enqueued time.Time       `json:"enqueued"`
}

// DrainResult summarizes one drain cycle for a category.
type DrainResult struct {
	Category QueueCategory `json:"category"`
	Replayed int           `json:"replayed"`
	Failed   bool          `json:"failed"`
	Buried   int           `json:"buried"`
}

// QueueStatus holds status information about the mutation queues.
type QueueStatus struct {
	Backend    string
	Connected  bool
	Counts     map[QueueCategory]int64
	DeadCounts map[QueueCategory]int64
	OldestItem time.Time
}
