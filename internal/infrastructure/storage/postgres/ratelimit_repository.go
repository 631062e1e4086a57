package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitRepository implements a fixed-window counter in the database so
// the limit holds across server replicas. The increment and the check are
// one statement; two concurrent requests cannot both take the last slot.
type RateLimitRepository struct {
	pool   *pgxpool.Pool
	limit  int
	window time.Duration
}

func NewRateLimitRepository(pool *pgxpool.Pool, limit int, window time.Duration) *RateLimitRepository {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimitRepository{pool: pool, limit: limit, window: window}
}

func (r *RateLimitRepository) Allow(ctx context.Context, userID int, now time.Time) (bool, error) {
	windowStart := now.Truncate(r.window)

	query := `
		INSERT INTO rate_limits (user_id, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, window_start) DO UPDATE SET
			count = rate_limits.count + 1
		RETURNING count
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, windowStart).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count rate limit window: %w", err)
	}
	return count <= r.limit, nil
}

// Prune drops windows old enough to be irrelevant.
func (r *RateLimitRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rate_limits WHERE window_start < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune rate limit windows: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
