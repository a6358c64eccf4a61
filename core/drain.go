package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// Replay endpoints per category. Interaction events fan out by type.
const (
	applicationsEndpoint = "/api/applications"
	certificatesEndpoint = "/api/certificates/requests"
	likesEndpoint        = "/api/interactions/likes"
	commentsEndpoint     = "/api/interactions/comments"
)

// Drainer replays queued offline mutations against the upstream once
// connectivity returns. Replay is strictly FIFO within a category and
// halts the cycle at the first transient failure so ordering holds.
type Drainer struct {
	queue       contract.QueueStore
	fetch       contract.Fetcher
	maxAttempts int
	dispatcher  *Dispatcher
	channel     contract.Broadcaster
	log         *slog.Logger
}

// NewDrainer wires the replay routine.
func NewDrainer(queue contract.QueueStore, fetch contract.Fetcher, maxAttempts int, dispatcher *Dispatcher, channel contract.Broadcaster, log *slog.Logger) *Drainer {
	if maxAttempts <= 0 {
		maxAttempts = contract.DefaultMaxDrainAttempts
	}
	return &Drainer{
		queue:       queue,
		fetch:       fetch,
		maxAttempts: maxAttempts,
		dispatcher:  dispatcher,
		channel:     channel,
		log:         log,
	}
}

// Enqueue records a mutation for later replay and returns its ID.
func (d *Drainer) Enqueue(item *schema.QueueItem) (int64, error) {
	id, err := d.queue.Enqueue(item)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s mutation: %w", item.Category, err)
	}
	d.log.Info("mutation queued", "category", item.Category, "id", id)
	return id, nil
}

// DrainCategory replays one category queue head-first. Each item is
// removed only after the upstream accepts it. A transient failure leaves
// the item queued with an incremented attempt count and stops the cycle;
// an item that exhausts its attempts moves to the dead-letter table and
// the cycle continues past it. Malformed items are dropped.
func (d *Drainer) DrainCategory(ctx context.Context, category schema.QueueCategory) (schema.DrainResult, error) {
	result := schema.DrainResult{Category: category}

	for {
		item, err := d.queue.Oldest(category)
		if errors.Is(err, contract.ErrNotFound) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read %s queue head: %w", category, err)
		}

		endpoint, ok := replayEndpoint(item)
		if !ok {
			d.log.Warn("dropping malformed queue item", "category", category, "id", item.ID, "type", item.Type)
			if err := d.queue.Remove(item.ID); err != nil {
				return result, fmt.Errorf("failed to drop malformed item %d: %w", item.ID, err)
			}
			continue
		}

		if replayErr := d.replay(ctx, item, endpoint); replayErr != nil {
			if item.Attempts+1 >= d.maxAttempts {
				d.log.Warn("burying queue item after repeated failures",
					"category", category, "id", item.ID, "attempts", item.Attempts+1, "error", replayErr)
				item.Attempts++
				if err := d.queue.Bury(item); err != nil {
					return result, fmt.Errorf("failed to bury item %d: %w", item.ID, err)
				}
				result.Buried++
				continue
			}
			d.log.Info("replay failed, retaining item",
				"category", category, "id", item.ID, "attempts", item.Attempts+1, "error", replayErr)
			if err := d.queue.Touch(item.ID); err != nil {
				return result, fmt.Errorf("failed to record attempt for item %d: %w", item.ID, err)
			}
			result.Failed = true
			break
		}

		if err := d.queue.Remove(item.ID); err != nil {
			return result, fmt.Errorf("failed to remove replayed item %d: %w", item.ID, err)
		}
		result.Replayed++
	}

	if !result.Failed && result.Replayed > 0 {
		d.announce(result)
	}
	return result, nil
}

// DrainAll drains every category concurrently. Per-category failures are
// logged and tolerated so one stuck queue cannot block the others.
func (d *Drainer) DrainAll(ctx context.Context) []schema.DrainResult {
	results := make([]schema.DrainResult, len(schema.AllCategories))
	g, ctx := errgroup.WithContext(ctx)
	for i, category := range schema.AllCategories {
		g.Go(func() error {
			res, err := d.DrainCategory(ctx, category)
			if err != nil {
				d.log.Warn("drain cycle aborted", "category", category, "error", err)
				res.Failed = true
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// replay posts one queued mutation to its endpoint. Network failure and
// upstream rejection are both replay failures.
func (d *Drainer) replay(ctx context.Context, item *schema.QueueItem, endpoint string) error {
	req := &schema.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   item.Data,
	}
	if item.Token != "" {
		req.Header.Set("Authorization", "Bearer "+item.Token)
	}

	resp, err := d.fetch.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status >= http.StatusBadRequest {
		return fmt.Errorf("upstream rejected replay with status %d", resp.Status)
	}
	return nil
}

// announce surfaces a successful drain to the user and to connected
// foreground instances.
func (d *Drainer) announce(result schema.DrainResult) {
	n := &schema.NotificationRequest{
		Title: drainTitle(result.Category),
		Body:  fmt.Sprintf("%d pending items were submitted successfully", result.Replayed),
		Tag:   "sync-" + string(result.Category),
	}
	if err := d.dispatcher.Show(n); err != nil {
		d.log.Warn("sync notification failed", "category", result.Category, "error", err)
	}

	if msg, err := schema.NewClientMessage(schema.MessageSync, result); err == nil {
		d.channel.Broadcast(msg)
	}
}

func drainTitle(category schema.QueueCategory) string {
	switch category {
	case schema.CategoryApplications:
		return "Applications synced"
	case schema.CategoryCertificates:
		return "Certificate requests synced"
	case schema.CategoryInteractions:
		return "Interactions synced"
	}
	return "Queue synced"
}

// replayEndpoint selects the upstream endpoint for an item. The boolean
// is false for interaction events with an unknown type.
func replayEndpoint(item *schema.QueueItem) (string, bool) {
	switch item.Category {
	case schema.CategoryApplications:
		return applicationsEndpoint, true
	case schema.CategoryCertificates:
		return certificatesEndpoint, true
	case schema.CategoryInteractions:
		switch item.Type {
		case schema.InteractionLike:
			return likesEndpoint, true
		case schema.InteractionComment:
			return commentsEndpoint, true
		}
	}
	return "", false
}
