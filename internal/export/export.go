// Package export writes queue contents to Parquet files using
// github.com/parquet-go/parquet-go.
package export

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// QueuedMutation is one queued offline mutation flattened for export.
type QueuedMutation struct {
	// ID is the queue item's durable identifier
	ID int64 `parquet:"id,snappy"`

	// Category names the queue the item belongs to
	Category string `parquet:"category,snappy"`

	// ItemType is the mutation subtype (nullable, interactions only)
	ItemType *string `parquet:"item_type,optional,snappy"`

	// Enqueued is when the mutation was captured
	Enqueued time.Time `parquet:"enqueued,snappy"`

	// Attempts is the replay attempt count so far
	Attempts int32 `parquet:"attempts,snappy"`

	// PayloadBytes is the size of the JSON payload
	PayloadBytes int32 `parquet:"payload_bytes,snappy"`

	// HasToken reports whether the item carries an auth token
	HasToken bool `parquet:"has_token,snappy"`
}

// WriteQueueParquet writes queued mutations to a Parquet file.
func WriteQueueParquet(data []QueuedMutation, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is inferred from the QueuedMutation struct tags.
	writer := parquet.NewGenericWriter[QueuedMutation](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// ConvertQueueItems flattens queue items for Parquet export. Payload
// bodies stay out of the export; only their sizes are recorded.
func ConvertQueueItems(items []schema.QueueItem) []QueuedMutation {
	result := make([]QueuedMutation, len(items))
	for i, item := range items {
		result[i] = QueuedMutation{
			ID:           item.ID,
			Category:     string(item.Category),
			Enqueued:     item.Enqueued,
			Attempts:     int32(item.Attempts),
			PayloadBytes: int32(len(item.Data)),
			HasToken:     item.Token != "",
		}
		if item.Type != "" {
			t := item.Type
			result[i].ItemType = &t
		}
	}
	return result
}

// ExecuteQueueExport collects every category's queued mutations and
// writes them to a single Parquet file.
func ExecuteQueueExport(queue contract.QueueStore, outputFile string) (int, error) {
	if outputFile == "" {
		return 0, errors.New("--output-file is required for export command")
	}

	var all []schema.QueueItem
	for _, category := range schema.AllCategories {
		items, err := queue.Items(category)
		if err != nil {
			return 0, fmt.Errorf("failed to list %s queue: %w", category, err)
		}
		all = append(all, items...)
	}

	if len(all) == 0 {
		return 0, errors.New("no queued mutations found to export")
	}

	if err := WriteQueueParquet(ConvertQueueItems(all), outputFile); err != nil {
		return 0, err
	}
	return len(all), nil
}
