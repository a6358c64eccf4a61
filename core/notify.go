package core

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// defaultNotificationBody is the body used when a push payload omits one.
const defaultNotificationBody = "New notification"

// Dispatcher turns push payloads into user-visible notifications and
// routes notification clicks back into the application's navigation.
type Dispatcher struct {
	host    contract.Host
	product string
	log     *slog.Logger
}

// NewDispatcher wires a dispatcher to the host capabilities.
func NewDispatcher(host contract.Host, product string, log *slog.Logger) *Dispatcher {
	if product == "" {
		product = schema.ProductName
	}
	return &Dispatcher{host: host, product: product, log: log}
}

// FromPush builds a notification from a raw push body, applying defaults
// for omitted fields. A non-JSON body degrades to a plain-text
// notification carrying the raw payload instead of failing the handler.
func (d *Dispatcher) FromPush(body []byte) *schema.NotificationRequest {
	payload, ok := schema.DecodePushPayload(body)
	if !ok {
		d.log.Warn("malformed push payload, degrading to plain text", "bytes", len(body))
		return &schema.NotificationRequest{Title: d.product, Body: string(body)}
	}

	n := &schema.NotificationRequest{
		Title:              payload.Title,
		Body:               payload.Body,
		Icon:               payload.Icon,
		Tag:                payload.Tag,
		Data:               payload.Data,
		Actions:            payload.Actions,
		RequireInteraction: payload.RequireInteraction,
	}
	if n.Title == "" {
		n.Title = d.product
	}
	if n.Body == "" {
		n.Body = defaultNotificationBody
	}
	return n
}

// Show displays a host-level notification.
func (d *Dispatcher) Show(n *schema.NotificationRequest) error {
	return d.host.ShowNotification(n)
}

// HandleClick resolves the click target and either focuses an open
// foreground instance already at that location or opens a new one. The
// "view" action and the default click both use the notification's
// routing data, falling back to the application root.
func (d *Dispatcher) HandleClick(n *schema.NotificationRequest, action string) error {
	target := n.Data.URL
	if action != "" && action != schema.ActionView {
		// Unnamed actions still navigate via routing data when present.
		d.log.Debug("unrecognized notification action", "action", action)
	}
	if target == "" {
		target = "/"
	}

	for _, inst := range d.host.ListOpenInstances() {
		if locationMatches(inst.URL, target) {
			return d.host.FocusInstance(inst.ID)
		}
	}
	return d.host.OpenInstance(target)
}

// locationMatches compares an instance location against a click target,
// tolerating absolute vs path-only forms and trailing slashes.
func locationMatches(instanceURL, target string) bool {
	ip := normalizePath(instanceURL)
	tp := normalizePath(target)
	return ip == tp
}

func normalizePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
