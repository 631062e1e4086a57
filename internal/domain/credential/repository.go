package credential

import (
	"context"
)

// Repository persists store connection records.
type Repository interface {
	GetByStoreID(ctx context.Context, storeID string) (*StoreConnection, error)
	ListByUser(ctx context.Context, userID int) ([]*StoreConnection, error)
	Save(ctx context.Context, conn *StoreConnection) error
	Delete(ctx context.Context, storeID string) error
}
