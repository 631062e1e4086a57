package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/queue"
)

// QueueRepository stores sync jobs.
type QueueRepository struct {
	pool *pgxpool.Pool
}

func NewQueueRepository(pool *pgxpool.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

const jobColumns = `
	id, user_id, store_id, entity_type, entity_id, fields, status,
	attempt_count, max_attempts, last_error, next_attempt_at,
	created_at, updated_at, completed_at
`

func scanJob(row pgx.Row) (*queue.SyncJob, error) {
	var job queue.SyncJob
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.StoreID,
		&job.EntityType,
		&job.EntityID,
		&job.Fields,
		&job.Status,
		&job.AttemptCount,
		&job.MaxAttempts,
		&job.LastError,
		&job.NextAttemptAt,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Enqueue coalesces with an existing pending job for the same entity by
// merging the field lists, so rapid successive pushes do not fan out into
// duplicate remote calls.
func (r *QueueRepository) Enqueue(ctx context.Context, job *queue.SyncJob) (*queue.SyncJob, error) {
	query := `
		INSERT INTO sync_jobs
			(user_id, store_id, entity_type, entity_id, fields, status,
			 attempt_count, max_attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $9)
		ON CONFLICT (store_id, entity_type, entity_id) WHERE status = 'pending' DO UPDATE SET
			fields = (
				SELECT array_agg(DISTINCT f)
				FROM unnest(sync_jobs.fields || EXCLUDED.fields) AS f
			),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + jobColumns

	queued, err := scanJob(r.pool.QueryRow(ctx, query,
		job.UserID,
		job.StoreID,
		job.EntityType,
		job.EntityID,
		job.Fields,
		job.Status,
		job.MaxAttempts,
		job.NextAttemptAt,
		job.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return queued, nil
}

// ClaimPending claims due jobs with SKIP LOCKED so concurrent workers never
// double-process.
func (r *QueueRepository) ClaimPending(ctx context.Context, limit int, now time.Time) ([]*queue.SyncJob, error) {
	query := `
		UPDATE sync_jobs
		SET status = 'processing', updated_at = $1
		WHERE id IN (
			SELECT id FROM sync_jobs
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*queue.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *QueueRepository) Update(ctx context.Context, job *queue.SyncJob) error {
	query := `
		UPDATE sync_jobs
		SET status = $1, attempt_count = $2, last_error = $3,
		    next_attempt_at = $4, updated_at = $5, completed_at = $6
		WHERE id = $7
	`
	tag, err := r.pool.Exec(ctx, query,
		job.Status,
		job.AttemptCount,
		job.LastError,
		job.NextAttemptAt,
		job.UpdatedAt,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrJobNotFound
	}
	return nil
}

func (r *QueueRepository) GetByID(ctx context.Context, id string) (*queue.SyncJob, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *QueueRepository) ListByStore(ctx context.Context, storeID string, statuses []string, limit int) ([]*queue.SyncJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM sync_jobs
		WHERE store_id = $1 AND ($2::text[] IS NULL OR status = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, storeID, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*queue.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *QueueRepository) Stats(ctx context.Context, storeID string) (*queue.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'dead_letter')
		FROM sync_jobs
		WHERE store_id = $1
	`

	var stats queue.QueueStats
	if err := r.pool.QueryRow(ctx, query, storeID).Scan(
		&stats.Pending,
		&stats.Processing,
		&stats.Completed,
		&stats.DeadLetter,
	); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return &stats, nil
}

func (r *QueueRepository) ReleaseStuck(ctx context.Context, olderThan time.Time) (int, error) {
	query := `
		UPDATE sync_jobs
		SET status = 'pending', updated_at = now()
		WHERE status = 'processing' AND updated_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to release stuck jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteCompletedBefore prunes old completed jobs. Dead letters are never
// pruned here; they stay until an operator deals with them.
func (r *QueueRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM sync_jobs WHERE status = 'completed' AND completed_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune completed jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
