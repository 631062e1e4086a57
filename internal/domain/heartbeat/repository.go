package heartbeat

import (
	"context"
	"time"
)

// Repository persists heartbeat state and the conflict audit trail.
type Repository interface {
	Get(ctx context.Context, storeID string) (*StoreHeartbeat, error)
	Upsert(ctx context.Context, hb *StoreHeartbeat) error

	// ListDue returns heartbeats whose last check predates the cutoff and
	// whose failure count is below the ceiling. Stores with no heartbeat
	// row yet are included with zero state.
	ListDue(ctx context.Context, cutoff time.Time, failureCeiling int) ([]*StoreHeartbeat, error)

	RecordConflict(ctx context.Context, entry *ConflictLogEntry) error
	ListConflicts(ctx context.Context, storeID string, limit int) ([]*ConflictLogEntry, error)
}
