package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/session"
)

// SessionRepository stores API token digests.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) GetByHash(ctx context.Context, hash string) (*session.Token, error) {
	query := `
		SELECT id, user_id, name, token_hash, created_at, last_used_at, expires_at
		FROM api_tokens
		WHERE token_hash = $1
	`

	var t session.Token
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.TokenHash,
		&t.CreatedAt,
		&t.LastUsedAt,
		&t.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &t, nil
}

func (r *SessionRepository) Save(ctx context.Context, token *session.Token) (*session.Token, error) {
	query := `
		INSERT INTO api_tokens (user_id, name, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		token.UserID, token.Name, token.TokenHash, token.CreatedAt, token.ExpiresAt,
	).Scan(&token.ID); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, at, id,
	); err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string, userID int) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM api_tokens WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrTokenNotFound
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID int) ([]*session.Token, error) {
	query := `
		SELECT id, user_id, name, token_hash, created_at, last_used_at, expires_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*session.Token
	for rows.Next() {
		var t session.Token
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Name,
			&t.TokenHash,
			&t.CreatedAt,
			&t.LastUsedAt,
			&t.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}
