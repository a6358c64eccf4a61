package core

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// Registry owns the named cache partitions. Callers receive partition
// handles instead of name strings; writes through a handle are
// best-effort and never fail the primary request path.
type Registry struct {
	store contract.PartitionStore
	log   *slog.Logger
}

// NewRegistry wraps a partition store.
func NewRegistry(store contract.PartitionStore, log *slog.Logger) *Registry {
	return &Registry{store: store, log: log}
}

// OpenPartition returns a handle for the named partition, creating it
// lazily on first write. The operation is idempotent.
func (r *Registry) OpenPartition(name string) *Partition {
	return &Partition{name: name, registry: r}
}

// DeleteObsoletePartitions removes every partition whose name is not in
// keep. It must run to completion before the agent serves live traffic.
func (r *Registry) DeleteObsoletePartitions(keep []string) error {
	keepSet := make(map[string]bool, len(keep))
	for _, name := range keep {
		keepSet[name] = true
	}
	if err := r.store.DeletePartitions(keepSet); err != nil {
		return fmt.Errorf("failed to delete obsolete partitions: %w", err)
	}
	return nil
}

// Partition is a handle to one named cache partition.
type Partition struct {
	name     string
	registry *Registry
}

// Name returns the versioned partition name.
func (p *Partition) Name() string { return p.name }

// Get retrieves the cached snapshot for a request identity.
func (p *Partition) Get(req *schema.Request) (*schema.CachedResponse, bool) {
	resp, err := p.registry.store.Get(p.name, cacheKey(req))
	if err != nil {
		if !errors.Is(err, contract.ErrNotFound) {
			p.registry.log.Warn("cache read failed", "partition", p.name, "url", req.URL, "error", err)
		}
		return nil, false
	}
	return resp, true
}

// Put stores a snapshot for a request identity, overwriting any previous
// entry for the same key. Storage failures (quota, platform denial) are
// logged and dropped; the in-flight response is unaffected.
func (p *Partition) Put(req *schema.Request, resp *schema.CachedResponse) {
	if err := p.registry.store.Put(p.name, cacheKey(req), resp); err != nil {
		p.registry.log.Warn("cache write dropped", "partition", p.name, "url", req.URL, "error", err)
	}
}

// cacheKey hashes the canonical request identity (method + URL, query
// included) into a fixed-width key.
func cacheKey(req *schema.Request) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(req.CacheKey())))
}
