package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// Strategies bundles the three caching policies. Each strategy produces
// a response for a request using one cache partition and the network.
// Every path that both returns and caches a response stores an
// independent clone, since the two copies must not share a body.
// Only success responses are cached: an upstream 4xx/5xx is returned
// live but never snapshotted, so a transient failure cannot shadow the
// offline fallbacks or pin a broken body.
type Strategies struct {
	fetch      contract.Fetcher
	tasks      *TaskRunner
	classifier *Classifier
	log        *slog.Logger
}

// NewStrategies wires the strategy handlers.
func NewStrategies(fetch contract.Fetcher, tasks *TaskRunner, classifier *Classifier, log *slog.Logger) *Strategies {
	return &Strategies{fetch: fetch, tasks: tasks, classifier: classifier, log: log}
}

// NetworkFirst serves API traffic: live response when reachable, cached
// snapshot on network failure. Identity-sensitive endpoints degrade to
// the structured offline JSON instead of a propagated failure.
func (s *Strategies) NetworkFirst(ctx context.Context, req *schema.Request, p *Partition) (*schema.CachedResponse, bool, error) {
	resp, err := s.fetch.Do(ctx, req)
	if err == nil {
		if cacheable(resp) {
			p.Put(req, resp.Clone())
		}
		return resp, false, nil
	}

	if cached, ok := p.Get(req); ok {
		return cached, true, nil
	}
	if s.classifier.IsIdentitySensitive(req) {
		return OfflineJSON(), false, nil
	}
	return nil, false, err
}

// CacheFirst serves image traffic: cache wins, network fills misses, and
// total failure synthesizes a placeholder. This strategy never surfaces
// an error for visual assets.
func (s *Strategies) CacheFirst(ctx context.Context, req *schema.Request, p *Partition) (*schema.CachedResponse, bool, error) {
	if cached, ok := p.Get(req); ok {
		return cached, true, nil
	}

	resp, err := s.fetch.Do(ctx, req)
	if err == nil {
		if cacheable(resp) {
			p.Put(req, resp.Clone())
		}
		return resp, false, nil
	}

	s.log.Debug("image unreachable, serving placeholder", "url", req.URL, "error", err)
	return PlaceholderImage(), false, nil
}

// StaleWhileRevalidate serves static traffic: a cached value returns
// immediately while a detached fetch refreshes the entry for next time.
// Without a cached value the caller waits for the network, and a network
// failure propagates.
func (s *Strategies) StaleWhileRevalidate(ctx context.Context, req *schema.Request, p *Partition) (*schema.CachedResponse, bool, error) {
	if cached, ok := p.Get(req); ok {
		// The revalidation is explicitly not awaited; its completion
		// only affects future reads.
		detached := context.WithoutCancel(ctx)
		s.tasks.Go("revalidate "+req.URL, func() error {
			resp, err := s.fetch.Do(detached, req)
			if err != nil {
				return err
			}
			if !cacheable(resp) {
				return fmt.Errorf("revalidation returned status %d", resp.Status)
			}
			p.Put(req, resp)
			return nil
		})
		return cached, true, nil
	}

	resp, err := s.fetch.Do(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if cacheable(resp) {
		p.Put(req, resp.Clone())
	}
	return resp, false, nil
}

// cacheable reports whether a response may be snapshotted.
func cacheable(resp *schema.CachedResponse) bool {
	return resp.Status < http.StatusBadRequest
}
