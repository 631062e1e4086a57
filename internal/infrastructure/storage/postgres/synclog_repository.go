package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/queue"
)

// SyncLogRepository stores the per-store sync audit trail.
type SyncLogRepository struct {
	pool *pgxpool.Pool
}

func NewSyncLogRepository(pool *pgxpool.Pool) *SyncLogRepository {
	return &SyncLogRepository{pool: pool}
}

func (r *SyncLogRepository) Record(ctx context.Context, entry *queue.LogEntry) error {
	query := `
		INSERT INTO sync_logs (store_id, entity_type, entity_id, action, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		entry.StoreID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.Status,
		entry.Message,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to record sync log: %w", err)
	}
	return nil
}

func (r *SyncLogRepository) ListByStore(ctx context.Context, storeID string, limit int) ([]*queue.LogEntry, error) {
	query := `
		SELECT id, store_id, entity_type, entity_id, action, status, message, created_at
		FROM sync_logs
		WHERE store_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer rows.Close()

	var entries []*queue.LogEntry
	for rows.Next() {
		var e queue.LogEntry
		if err := rows.Scan(
			&e.ID,
			&e.StoreID,
			&e.EntityType,
			&e.EntityID,
			&e.Action,
			&e.Status,
			&e.Message,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *SyncLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sync_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync logs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
