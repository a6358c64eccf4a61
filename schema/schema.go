// Package schema defines the shared types for the offlined agent.
package schema

import (
	"net/http"
	"time"
)

// ProductName is the user-facing name used for notification defaults.
const ProductName = "CivilSoul"

// RequestClass is the traffic class assigned by the request classifier.
type RequestClass string

// Traffic classes. Bypass requests are never intercepted.
const (
	ClassAPI    RequestClass = "api"
	ClassImage  RequestClass = "image"
	ClassStatic RequestClass = "static"
	ClassBypass RequestClass = "bypass"
)

// AgentState is the lifecycle state of the agent.
type AgentState string

// Lifecycle states. The agent serves intercepted traffic only in Active.
const (
	StateInstalling AgentState = "installing"
	StateWaiting    AgentState = "waiting"
	StateActive     AgentState = "active"
)

// Partition base names. Full partition names carry the version tag suffix
// so that a version bump replaces one partition without disturbing others.
const (
	PartitionStatic = "static-assets"
	PartitionAPI    = "api-responses"
	PartitionImages = "image-assets"
)

// PartitionName returns the versioned name for a partition base.
func PartitionName(base, versionTag string) string {
	return base + "-" + versionTag
}

// Request is the canonical view of an intercepted request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// CacheKey returns the request identity used as the cache entry key.
// Method and full URL (query included) participate; headers do not.
func (r *Request) CacheKey() string {
	return r.Method + " " + r.URL
}

// CachedResponse is a snapshot of a response at the time it was produced.
// No expiry is modeled; staleness is policy-defined, not data-defined.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Clone returns an independent copy so that storing and returning never
// share a body. A response handed to the caller may be mutated freely
// without affecting the cached copy.
func (r *CachedResponse) Clone() *CachedResponse {
	if r == nil {
		return nil
	}
	c := &CachedResponse{Status: r.Status, Header: make(http.Header, len(r.Header))}
	for key, values := range r.Header {
		c.Header[key] = append([]string(nil), values...)
	}
	c.Body = make([]byte, len(r.Body))
	copy(c.Body, r.Body)
	return c
}

// CacheStatus holds status information about the cache store.
type CacheStatus struct {
	Backend         string
	Connected       bool
	Partitions      map[string]int64
	TotalEntries    int64
	LastEntryTime   time.Time
	OldestEntryTime time.Time
	TableSizeBytes  int64
}

// DatabaseBackend identifies the durable storage engine.
type DatabaseBackend string

// Supported database backends.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)
