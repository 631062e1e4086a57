package heartbeat

import (
	"time"

	"storesync/internal/domain/product"
)

// StoreHeartbeat tracks the reconciliation state of one store.
type StoreHeartbeat struct {
	StoreID string `json:"store_id"`
	// Checkpoint is the highest remote modification timestamp applied so
	// far; the next check fetches strictly newer items.
	Checkpoint  time.Time `json:"checkpoint"`
	LastCheckAt time.Time `json:"last_check_at"`
	// ConsecutiveFailures suspends the store once it reaches the ceiling,
	// so a dead connection stops burning API calls every interval.
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ConflictLogEntry preserves the local state that a store-wins overwrite is
// about to discard. It is written before the overwrite, never after.
type ConflictLogEntry struct {
	ID           string          `json:"id"`
	StoreID      string          `json:"store_id"`
	ProductID    string          `json:"product_id"`
	ExternalID   string          `json:"external_id"`
	DirtyFields  []string        `json:"dirty_fields"`
	LocalContent product.Content `json:"local_content"`
	RemoteContent product.Content `json:"remote_content"`
	DetectedAt   time.Time       `json:"detected_at"`
}
