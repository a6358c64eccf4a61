package schema

import "encoding/json"

// NotificationAction is one button attached to a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// NotificationData carries the routing target used to deep-link on click.
type NotificationData struct {
	URL string `json:"url,omitempty"`
}

// NotificationRequest describes a user-visible notification. It is
// ephemeral: created on push receipt or by an internal notify call and
// destroyed once displayed or dismissed.
type NotificationRequest struct {
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon,omitempty"`
	Tag                string               `json:"tag,omitempty"`
	Data               NotificationData     `json:"data,omitempty"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction,omitempty"`
}

// PushPayload is the inbound push contract. Every field is optional;
// defaults are applied by the dispatcher.
type PushPayload struct {
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon"`
	Tag                string               `json:"tag"`
	Data               NotificationData     `json:"data"`
	Actions            []NotificationAction `json:"actions"`
	RequireInteraction bool                 `json:"requireInteraction"`
}

// ActionView is the named notification action that uses routing data on click.
const ActionView = "view"

// DecodePushPayload parses a raw push body. The boolean reports whether
// the body was valid JSON; callers degrade to a plain-text notification
// when it was not.
func DecodePushPayload(body []byte) (*PushPayload, bool) {
	var p PushPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, false
	}
	return &p, true
}
