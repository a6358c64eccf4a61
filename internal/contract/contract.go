// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"

	"github.com/civilsoul/offlined/schema"
)

// ErrNotFound is returned by stores when a key or item is absent.
var ErrNotFound = errors.New("not found")

// PartitionStore defines durable storage for cache partitions.
// This allows the registry to be tested without a real database.
type PartitionStore interface {
	// Get retrieves an entry by key within a partition. Returns ErrNotFound when missing.
	Get(partition, key string) (*schema.CachedResponse, error)

	// Put inserts or overwrites an entry. A single key write is atomic.
	Put(partition, key string, resp *schema.CachedResponse) error

	// Partitions lists every partition that currently holds entries.
	Partitions() ([]string, error)

	// DeletePartitions removes every partition whose name is not in keep.
	// The deletion runs to completion before returning.
	DeletePartitions(keep map[string]bool) error

	// Status returns status information about the cache store.
	Status() (schema.CacheStatus, error)
}

// QueueStore defines durable FIFO storage for offline mutations.
type QueueStore interface {
	// Enqueue appends an item to its category queue and returns its ID.
	Enqueue(item *schema.QueueItem) (int64, error)

	// Oldest returns the head of a category queue. Returns ErrNotFound when empty.
	Oldest(category schema.QueueCategory) (*schema.QueueItem, error)

	// Remove permanently deletes a settled item.
	Remove(id int64) error

	// Touch increments the attempt counter for a failed item, leaving it queued.
	Touch(id int64) error

	// Bury moves a repeatedly failing item to the dead-letter table.
	Bury(item *schema.QueueItem) error

	// Items lists all queued items in a category in enqueue order.
	Items(category schema.QueueCategory) ([]schema.QueueItem, error)

	// Status returns status information about the queues.
	Status() (schema.QueueStatus, error)
}

// StoreManager owns the durable stores for the agent's lifetime.
type StoreManager interface {
	PartitionStore() PartitionStore
	QueueStore() QueueStore
	Close() error
}

// Fetcher abstracts the network so strategies and the replay routine can
// be tested without a live upstream.
type Fetcher interface {
	// Do performs the request and snapshots the response. A non-nil error
	// means the network was unreachable; HTTP error statuses are returned
	// as responses, not errors.
	Do(ctx context.Context, req *schema.Request) (*schema.CachedResponse, error)
}

// Instance is one open foreground instance known to the host.
type Instance struct {
	ID  string
	URL string
}

// Host abstracts the platform capabilities the agent needs for
// notifications and navigation, keeping routing logic testable.
type Host interface {
	ShowNotification(n *schema.NotificationRequest) error
	ListOpenInstances() []Instance
	FocusInstance(id string) error
	OpenInstance(url string) error
}

// Broadcaster pushes structured messages to connected foreground instances.
type Broadcaster interface {
	// Broadcast sends the message to every connected instance and returns
	// how many received it.
	Broadcast(msg schema.ClientMessage) int
}
