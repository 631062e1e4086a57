package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/credential"
)

// CredentialRepository stores encrypted store connections.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

func (r *CredentialRepository) GetByStoreID(ctx context.Context, storeID string) (*credential.StoreConnection, error) {
	query := `
		SELECT id, user_id, store_name, platform, encrypted_blob, created_at, updated_at
		FROM store_connections
		WHERE id = $1
	`

	var conn credential.StoreConnection
	err := r.pool.QueryRow(ctx, query, storeID).Scan(
		&conn.ID,
		&conn.UserID,
		&conn.StoreName,
		&conn.Platform,
		&conn.EncryptedBlob,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get store connection: %w", err)
	}
	return &conn, nil
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID int) ([]*credential.StoreConnection, error) {
	query := `
		SELECT id, user_id, store_name, platform, encrypted_blob, created_at, updated_at
		FROM store_connections
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query store connections: %w", err)
	}
	defer rows.Close()

	var conns []*credential.StoreConnection
	for rows.Next() {
		var conn credential.StoreConnection
		if err := rows.Scan(
			&conn.ID,
			&conn.UserID,
			&conn.StoreName,
			&conn.Platform,
			&conn.EncryptedBlob,
			&conn.CreatedAt,
			&conn.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan store connection: %w", err)
		}
		conns = append(conns, &conn)
	}
	return conns, rows.Err()
}

func (r *CredentialRepository) Save(ctx context.Context, conn *credential.StoreConnection) error {
	now := time.Now()

	if conn.ID == "" {
		query := `
			INSERT INTO store_connections (user_id, store_name, platform, encrypted_blob, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id
		`
		if err := r.pool.QueryRow(ctx, query,
			conn.UserID, conn.StoreName, conn.Platform, conn.EncryptedBlob, now,
		).Scan(&conn.ID); err != nil {
			return fmt.Errorf("failed to insert store connection: %w", err)
		}
		conn.CreatedAt = now
		conn.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE store_connections
		SET store_name = $1, platform = $2, encrypted_blob = $3, updated_at = $4
		WHERE id = $5
	`
	tag, err := r.pool.Exec(ctx, query,
		conn.StoreName, conn.Platform, conn.EncryptedBlob, now, conn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update store connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return credential.ErrNotFound
	}
	conn.UpdatedAt = now
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, storeID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM store_connections WHERE id = $1`, storeID)
	if err != nil {
		return fmt.Errorf("failed to delete store connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return credential.ErrNotFound
	}
	return nil
}
