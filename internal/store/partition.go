package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// Get retrieves an entry by key within a partition.
func (s *Store) Get(partition, key string) (*schema.CachedResponse, error) {
	if s.disabled() {
		return nil, contract.ErrNotFound
	}

	var value []byte
	query := s.rebind(`SELECT cache_value FROM cache_entries WHERE partition_name = ? AND cache_key = ?`)
	row := s.db.QueryRow(query, partition, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrNotFound
		}
		return nil, err
	}

	var resp schema.CachedResponse
	if err := json.Unmarshal(value, &resp); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s/%s: %w", partition, key, err)
	}
	return &resp, nil
}

// Put inserts or overwrites an entry. Writing the same key overwrites;
// a single key write is atomic.
func (s *Store) Put(partition, key string, resp *schema.CachedResponse) error {
	if s.disabled() {
		return nil
	}

	value, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	query := s.upsertEntryQuery()
	_, err = s.db.Exec(query, partition, key, value, time.Now().Unix())
	return err
}

// upsertEntryQuery returns the backend-specific UPSERT for cache entries.
func (s *Store) upsertEntryQuery() string {
	switch s.backend {
	case schema.MySQLBackend:
		return `INSERT INTO cache_entries (partition_name, cache_key, cache_value, created) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, created = new.created`

	case schema.PostgreSQLBackend:
		return `INSERT INTO cache_entries (partition_name, cache_key, cache_value, created) VALUES ($1, $2, $3, $4)
			ON CONFLICT (partition_name, cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, created = EXCLUDED.created`

	default: // SQLite
		return `INSERT OR REPLACE INTO cache_entries (partition_name, cache_key, cache_value, created) VALUES (?, ?, ?, ?)`
	}
}

// Partitions lists every partition that currently holds entries.
func (s *Store) Partitions() ([]string, error) {
	if s.disabled() {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT DISTINCT partition_name FROM cache_entries ORDER BY partition_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeletePartitions removes every partition whose name is not in keep.
// The statement is a single irreversible delete; it completes before
// the agent accepts new traffic.
func (s *Store) DeletePartitions(keep map[string]bool) error {
	if s.disabled() {
		return nil
	}

	if len(keep) == 0 {
		_, err := s.db.Exec(`DELETE FROM cache_entries`)
		return err
	}

	placeholders := make([]string, 0, len(keep))
	args := make([]any, 0, len(keep))
	for name := range keep {
		placeholders = append(placeholders, "?")
		args = append(args, name)
	}
	query := s.rebind(fmt.Sprintf(`DELETE FROM cache_entries WHERE partition_name NOT IN (%s)`, strings.Join(placeholders, ", ")))
	_, err := s.db.Exec(query, args...)
	return err
}

// Status returns status information about the cache store.
func (s *Store) Status() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:    string(s.backend),
		Connected:  !s.disabled(),
		Partitions: make(map[string]int64),
	}
	if !status.Connected {
		return status, nil
	}

	rows, err := s.db.Query(`SELECT partition_name, COUNT(*) FROM cache_entries GROUP BY partition_name`)
	if err != nil {
		return status, fmt.Errorf("failed to count partitions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return status, err
		}
		status.Partitions[name] = count
		status.TotalEntries += count
	}
	if err := rows.Err(); err != nil {
		return status, err
	}

	if status.TotalEntries == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	row := s.db.QueryRow(`SELECT MAX(created), MIN(created) FROM cache_entries`)
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.Unix(lastTs, 0)
	status.OldestEntryTime = time.Unix(oldestTs, 0)

	// Database size is only cheap to read for SQLite
	if s.backend == schema.SQLiteBackend {
		row = s.db.QueryRow(`SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`)
		if err := row.Scan(&status.TableSizeBytes); err != nil {
			status.TableSizeBytes = 0
		}
	}

	return status, nil
}
