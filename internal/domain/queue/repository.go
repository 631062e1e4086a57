package queue

import (
	"context"
	"time"
)

// Repository persists sync jobs.
type Repository interface {
	// Enqueue inserts a job, coalescing with an existing pending job for the
	// same (store, entity) by merging field lists instead of duplicating.
	Enqueue(ctx context.Context, job *SyncJob) (*SyncJob, error)

	// ClaimPending atomically claims up to limit due jobs, marking them
	// processing so concurrent workers never pick the same job twice.
	ClaimPending(ctx context.Context, limit int, now time.Time) ([]*SyncJob, error)

	// Update persists a status transition.
	Update(ctx context.Context, job *SyncJob) error

	GetByID(ctx context.Context, id string) (*SyncJob, error)
	ListByStore(ctx context.Context, storeID string, statuses []string, limit int) ([]*SyncJob, error)
	Stats(ctx context.Context, storeID string) (*QueueStats, error)

	// ReleaseStuck returns jobs stuck in processing past the deadline to
	// pending. Worker crashes must not strand jobs.
	ReleaseStuck(ctx context.Context, olderThan time.Time) (int, error)

	// DeleteCompletedBefore prunes old completed jobs. Dead letters are kept
	// for operator review regardless of age.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
