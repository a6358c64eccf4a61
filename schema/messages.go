package schema

import "encoding/json"

// Client message types exchanged with foreground instances.
const (
	MessageNotification = "NOTIFICATION"
	MessagePerformance  = "PERFORMANCE"
	MessageSync         = "SYNC"
	MessageSkipWaiting  = "SKIP_WAITING"
)

// ClientMessage is the structured envelope for the messaging channel.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewClientMessage builds an envelope around any JSON-serializable data.
func NewClientMessage(msgType string, data any) (ClientMessage, error) {
	if data == nil {
		return ClientMessage{Type: msgType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ClientMessage{}, err
	}
	return ClientMessage{Type: msgType, Data: raw}, nil
}

// PerformanceSample is emitted once per classified request. Samples are
// ephemeral and never persisted.
type PerformanceSample struct {
	URL        string  `json:"url"`
	Method     string  `json:"method"`
	DurationMS float64 `json:"duration"`
	Cached     bool    `json:"cached"`
}
