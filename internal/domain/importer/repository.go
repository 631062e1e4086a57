package importer

import (
	"context"
	"time"
)

// Repository persists import jobs and their chunks.
type Repository interface {
	CreateJob(ctx context.Context, job *SyncImportJob) (*SyncImportJob, error)
	GetJob(ctx context.Context, id string) (*SyncImportJob, error)
	// GetActiveJob returns the store's discovering/syncing job, if any.
	GetActiveJob(ctx context.Context, storeID string) (*SyncImportJob, error)
	UpdateJob(ctx context.Context, job *SyncImportJob) error

	// CreateChunks inserts the chunks, silently skipping any that already
	// exist for the job, so reprocessed chunks do not fan out duplicates.
	CreateChunks(ctx context.Context, chunks []*ImportChunk) error
	// ClaimNextChunk atomically claims one pending chunk of the job, marking
	// it processing. Returns nil when no pending chunk remains.
	ClaimNextChunk(ctx context.Context, jobID string) (*ImportChunk, error)
	UpdateChunk(ctx context.Context, chunk *ImportChunk) error
	// ReleaseStuckChunks re-pends the job's processing chunks untouched since
	// olderThan, so a crashed pass does not strand them.
	ReleaseStuckChunks(ctx context.Context, jobID string, olderThan time.Time) (int, error)
	// ChunkProgress returns (pending, failed, total) chunk counts for the
	// job; pending includes processing.
	ChunkProgress(ctx context.Context, jobID string) (pending, failed, total int, err error)
}
