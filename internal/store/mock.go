package store

import (
	"sort"
	"sync"
	"time"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// MockManager is an in-memory StoreManager for tests.
type MockManager struct {
	Partition *MockPartitionStore
	Queue     *MockQueueStore
}

var _ contract.StoreManager = &MockManager{}

// NewMockManager returns an empty in-memory manager.
func NewMockManager() *MockManager {
	return &MockManager{
		Partition: &MockPartitionStore{entries: make(map[string]map[string]*schema.CachedResponse)},
		Queue:     &MockQueueStore{},
	}
}

// PartitionStore returns the in-memory partition store.
func (m *MockManager) PartitionStore() contract.PartitionStore { return m.Partition }

// QueueStore returns the in-memory queue store.
func (m *MockManager) QueueStore() contract.QueueStore { return m.Queue }

// Close is a no-op.
func (m *MockManager) Close() error { return nil }

// MockPartitionStore is an in-memory PartitionStore. Set PutErr or GetErr
// to simulate storage failures.
type MockPartitionStore struct {
	mu      sync.Mutex
	entries map[string]map[string]*schema.CachedResponse
	PutErr  error
	GetErr  error
}

var _ contract.PartitionStore = &MockPartitionStore{}

func (m *MockPartitionStore) Get(partition, key string) (*schema.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if resp, ok := m.entries[partition][key]; ok {
		return resp.Clone(), nil
	}
	return nil, contract.ErrNotFound
}

func (m *MockPartitionStore) Put(partition, key string, resp *schema.CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	if m.entries[partition] == nil {
		m.entries[partition] = make(map[string]*schema.CachedResponse)
	}
	m.entries[partition][key] = resp.Clone()
	return nil
}

func (m *MockPartitionStore) Partitions() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockPartitionStore) DeletePartitions(keep map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.entries {
		if !keep[name] {
			delete(m.entries, name)
		}
	}
	return nil
}

func (m *MockPartitionStore) Status() (schema.CacheStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := schema.CacheStatus{Backend: "mock", Connected: true, Partitions: make(map[string]int64)}
	for name, entries := range m.entries {
		status.Partitions[name] = int64(len(entries))
		status.TotalEntries += int64(len(entries))
	}
	return status, nil
}

// EntryCount reports how many entries a partition holds.
func (m *MockPartitionStore) EntryCount(partition string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[partition])
}

// MockQueueStore is an in-memory QueueStore preserving FIFO order.
type MockQueueStore struct {
	mu     sync.Mutex
	items  []schema.QueueItem
	dead   []schema.QueueItem
	nextID int64
}

var _ contract.QueueStore = &MockQueueStore{}

func (m *MockQueueStore) Enqueue(item *schema.QueueItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *item
	stored.ID = m.nextID
	if stored.Enqueued.IsZero() {
		stored.Enqueued = time.Now()
	}
	m.items = append(m.items, stored)
	return stored.ID, nil
}

func (m *MockQueueStore) Oldest(category schema.QueueCategory) (*schema.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].Category == category {
			item := m.items[i]
			return &item, nil
		}
	}
	return nil, contract.ErrNotFound
}

func (m *MockQueueStore) Remove(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return contract.ErrNotFound
}

func (m *MockQueueStore) Touch(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Attempts++
			return nil
		}
	}
	return contract.ErrNotFound
}

func (m *MockQueueStore) Bury(item *schema.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == item.ID {
			// The dead row reflects the caller's view, like the SQL insert does.
			m.dead = append(m.dead, *item)
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return contract.ErrNotFound
}

func (m *MockQueueStore) Items(category schema.QueueCategory) ([]schema.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schema.QueueItem
	for _, item := range m.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockQueueStore) Status() (schema.QueueStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := schema.QueueStatus{
		Backend:    "mock",
		Connected:  true,
		Counts:     make(map[schema.QueueCategory]int64),
		DeadCounts: make(map[schema.QueueCategory]int64),
	}
	for _, item := range m.items {
		status.Counts[item.Category]++
	}
	for _, item := range m.dead {
		status.DeadCounts[item.Category]++
	}
	return status, nil
}

// DeadItems returns the buried items for assertions.
func (m *MockQueueStore) DeadItems() []schema.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schema.QueueItem, len(m.dead))
	copy(out, m.dead)
	return out
}
