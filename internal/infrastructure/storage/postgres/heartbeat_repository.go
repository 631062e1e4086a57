package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/heartbeat"
)

// HeartbeatRepository stores per-store reconciliation state and the
// conflict audit trail.
type HeartbeatRepository struct {
	pool *pgxpool.Pool
}

func NewHeartbeatRepository(pool *pgxpool.Pool) *HeartbeatRepository {
	return &HeartbeatRepository{pool: pool}
}

func (r *HeartbeatRepository) Get(ctx context.Context, storeID string) (*heartbeat.StoreHeartbeat, error) {
	query := `
		SELECT store_id, checkpoint, last_check_at, consecutive_failures, last_error, updated_at
		FROM store_heartbeats
		WHERE store_id = $1
	`

	var hb heartbeat.StoreHeartbeat
	err := r.pool.QueryRow(ctx, query, storeID).Scan(
		&hb.StoreID,
		&hb.Checkpoint,
		&hb.LastCheckAt,
		&hb.ConsecutiveFailures,
		&hb.LastError,
		&hb.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, heartbeat.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get heartbeat: %w", err)
	}
	return &hb, nil
}

func (r *HeartbeatRepository) Upsert(ctx context.Context, hb *heartbeat.StoreHeartbeat) error {
	query := `
		INSERT INTO store_heartbeats
			(store_id, checkpoint, last_check_at, consecutive_failures, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (store_id) DO UPDATE SET
			checkpoint = EXCLUDED.checkpoint,
			last_check_at = EXCLUDED.last_check_at,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.pool.Exec(ctx, query,
		hb.StoreID,
		hb.Checkpoint,
		hb.LastCheckAt,
		hb.ConsecutiveFailures,
		hb.LastError,
		hb.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert heartbeat: %w", err)
	}
	return nil
}

// ListDue joins against store_connections so stores that never got a
// heartbeat row are checked too.
func (r *HeartbeatRepository) ListDue(ctx context.Context, cutoff time.Time, failureCeiling int) ([]*heartbeat.StoreHeartbeat, error) {
	query := `
		SELECT sc.id,
		       COALESCE(hb.checkpoint, to_timestamp(0)),
		       COALESCE(hb.last_check_at, to_timestamp(0)),
		       COALESCE(hb.consecutive_failures, 0),
		       COALESCE(hb.last_error, ''),
		       COALESCE(hb.updated_at, to_timestamp(0))
		FROM store_connections sc
		LEFT JOIN store_heartbeats hb ON hb.store_id = sc.id
		WHERE COALESCE(hb.last_check_at, to_timestamp(0)) < $1
		  AND COALESCE(hb.consecutive_failures, 0) < $2
		ORDER BY COALESCE(hb.last_check_at, to_timestamp(0)) ASC
	`

	rows, err := r.pool.Query(ctx, query, cutoff, failureCeiling)
	if err != nil {
		return nil, fmt.Errorf("failed to list due heartbeats: %w", err)
	}
	defer rows.Close()

	var due []*heartbeat.StoreHeartbeat
	for rows.Next() {
		var hb heartbeat.StoreHeartbeat
		if err := rows.Scan(
			&hb.StoreID,
			&hb.Checkpoint,
			&hb.LastCheckAt,
			&hb.ConsecutiveFailures,
			&hb.LastError,
			&hb.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan heartbeat: %w", err)
		}
		due = append(due, &hb)
	}
	return due, rows.Err()
}

func (r *HeartbeatRepository) RecordConflict(ctx context.Context, entry *heartbeat.ConflictLogEntry) error {
	query := `
		INSERT INTO conflict_log
			(store_id, product_id, external_id, dirty_fields, local_content, remote_content, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		entry.StoreID,
		entry.ProductID,
		entry.ExternalID,
		entry.DirtyFields,
		entry.LocalContent,
		entry.RemoteContent,
		entry.DetectedAt,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to record conflict: %w", err)
	}
	return nil
}

func (r *HeartbeatRepository) ListConflicts(ctx context.Context, storeID string, limit int) ([]*heartbeat.ConflictLogEntry, error) {
	query := `
		SELECT id, store_id, product_id, external_id, dirty_fields,
		       local_content, remote_content, detected_at
		FROM conflict_log
		WHERE store_id = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	var entries []*heartbeat.ConflictLogEntry
	for rows.Next() {
		var e heartbeat.ConflictLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.StoreID,
			&e.ProductID,
			&e.ExternalID,
			&e.DirtyFields,
			&e.LocalContent,
			&e.RemoteContent,
			&e.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
