package queue

import (
	"context"
	"time"
)

// LogEntry is one row of the per-store sync audit trail.
type LogEntry struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"store_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"` // push, retry, dead_letter
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LogRecorder appends audit entries. Recording is best effort; a failed
// write never fails the job it describes.
type LogRecorder interface {
	Record(ctx context.Context, entry *LogEntry) error
	ListByStore(ctx context.Context, storeID string, limit int) ([]*LogEntry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
