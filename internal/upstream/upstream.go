// Package upstream implements the network fetcher used by the caching
// strategies and the queue replay routine.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/civilsoul/offlined/schema"
)

// maxBodyBytes bounds a snapshotted response body.
const maxBodyBytes = 32 << 20

// Client performs requests against the upstream origin and snapshots the
// responses. It implements contract.Fetcher: a returned error means the
// network was unreachable, while HTTP error statuses come back as
// ordinary responses.
type Client struct {
	http *http.Client
	base *url.URL
}

// NewClient builds a fetcher rooted at the upstream base URL.
func NewClient(base *url.URL, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: base,
	}
}

// Do performs the request. Relative URLs resolve against the upstream
// base; absolute URLs pass through untouched.
func (c *Client) Do(ctx context.Context, req *schema.Request) (*schema.CachedResponse, error) {
	target, err := c.resolve(req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve request URL %q: %w", req.URL, err)
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = values
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return &schema.CachedResponse{
		Status: httpResp.StatusCode,
		Header: httpResp.Header.Clone(),
		Body:   data,
	}, nil
}

func (c *Client) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return raw, nil
	}
	return c.base.ResolveReference(u).String(), nil
}
