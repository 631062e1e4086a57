package session

import (
	"context"
	"time"
)

// Repository persists API tokens.
type Repository interface {
	GetByHash(ctx context.Context, hash string) (*Token, error)
	Save(ctx context.Context, token *Token) (*Token, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string, userID int) error
	ListByUser(ctx context.Context, userID int) ([]*Token, error)
}
