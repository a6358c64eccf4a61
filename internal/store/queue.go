package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// Enqueue appends an item to its category queue and returns its ID.
func (s *Store) Enqueue(item *schema.QueueItem) (int64, error) {
	if s.disabled() {
		return 0, fmt.Errorf("queue persistence is disabled")
	}

	enqueued := item.Enqueued
	if enqueued.IsZero() {
		enqueued = time.Now()
	}

	if s.backend == schema.PostgreSQLBackend {
		var id int64
		row := s.db.QueryRow(
			`INSERT INTO queue_items (category, item_type, bearer_token, payload, attempts, enqueued)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			item.Category, item.Type, item.Token, []byte(item.Data), item.Attempts, enqueued.Unix())
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := s.db.Exec(
		`INSERT INTO queue_items (category, item_type, bearer_token, payload, attempts, enqueued)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.Category, item.Type, item.Token, []byte(item.Data), item.Attempts, enqueued.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Oldest returns the head of a category queue in enqueue order.
func (s *Store) Oldest(category schema.QueueCategory) (*schema.QueueItem, error) {
	if s.disabled() {
		return nil, contract.ErrNotFound
	}

	query := s.rebind(
		`SELECT id, category, item_type, bearer_token, payload, attempts, enqueued
		 FROM queue_items WHERE category = ? ORDER BY id ASC LIMIT 1`)
	item, err := scanQueueItem(s.db.QueryRow(query, category))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// Remove permanently deletes a settled item.
func (s *Store) Remove(id int64) error {
	if s.disabled() {
		return nil
	}
	_, err := s.db.Exec(s.rebind(`DELETE FROM queue_items WHERE id = ?`), id)
	return err
}

// Touch increments the attempt counter for a failed item, leaving it
// queued in its original position.
func (s *Store) Touch(id int64) error {
	if s.disabled() {
		return nil
	}
	_, err := s.db.Exec(s.rebind(`UPDATE queue_items SET attempts = attempts + 1 WHERE id = ?`), id)
	return err
}

// Bury moves a repeatedly failing item to the dead-letter table. Buried
// items are retained for inspection but never retried automatically.
func (s *Store) Bury(item *schema.QueueItem) error {
	if s.disabled() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(s.rebind(
		`INSERT INTO dead_items (source_id, category, item_type, bearer_token, payload, attempts, enqueued, buried)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		item.ID, item.Category, item.Type, item.Token, []byte(item.Data), item.Attempts, item.Enqueued.Unix(), time.Now().Unix())
	if err != nil {
		return err
	}
	if _, err := tx.Exec(s.rebind(`DELETE FROM queue_items WHERE id = ?`), item.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// Items lists all queued items in a category in enqueue order.
func (s *Store) Items(category schema.QueueCategory) ([]schema.QueueItem, error) {
	if s.disabled() {
		return nil, nil
	}

	query := s.rebind(
		`SELECT id, category, item_type, bearer_token, payload, attempts, enqueued
		 FROM queue_items WHERE category = ? ORDER BY id ASC`)
	rows, err := s.db.Query(query, category)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []schema.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Status returns status information about the mutation queues.
func (s *Store) QueueStatus() (schema.QueueStatus, error) {
	status := schema.QueueStatus{
		Backend:    string(s.backend),
		Connected:  !s.disabled(),
		Counts:     make(map[schema.QueueCategory]int64),
		DeadCounts: make(map[schema.QueueCategory]int64),
	}
	if !status.Connected {
		return status, nil
	}

	if err := s.countByCategory(`SELECT category, COUNT(*) FROM queue_items GROUP BY category`, status.Counts); err != nil {
		return status, err
	}
	if err := s.countByCategory(`SELECT category, COUNT(*) FROM dead_items GROUP BY category`, status.DeadCounts); err != nil {
		return status, err
	}

	var total int64
	for _, n := range status.Counts {
		total += n
	}
	if total > 0 {
		var oldest int64
		row := s.db.QueryRow(`SELECT MIN(enqueued) FROM queue_items`)
		if err := row.Scan(&oldest); err == nil {
			status.OldestItem = time.Unix(oldest, 0)
		}
	}
	return status, nil
}

// countByCategory fills dst from a category/count aggregation query.
func (s *Store) countByCategory(query string, dst map[schema.QueueCategory]int64) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cat string
		var count int64
		if err := rows.Scan(&cat, &count); err != nil {
			return err
		}
		dst[schema.QueueCategory(cat)] = count
	}
	return rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanQueueItem reads one queue item row.
func scanQueueItem(row rowScanner) (*schema.QueueItem, error) {
	var item schema.QueueItem
	var payload []byte
	var enqueued int64
	if err := row.Scan(&item.ID, &item.Category, &item.Type, &item.Token, &payload, &item.Attempts, &enqueued); err != nil {
		return nil, err
	}
	item.Data = payload
	item.Enqueued = time.Unix(enqueued, 0)
	return &item, nil
}
