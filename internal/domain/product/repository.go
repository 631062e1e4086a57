package product

import (
	"context"
	"time"
)

// Repository persists the local product and article mirrors. Upsert methods
// key on (store_id, platform id) so chunk reprocessing is idempotent.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByPlatformID(ctx context.Context, storeID, platformProductID string) (*Product, error)
	Upsert(ctx context.Context, p *Product) error

	// ApplyPushResult persists the snapshot/dirty-field transition of a
	// successful push in one statement.
	ApplyPushResult(ctx context.Context, id string, pushed []string, snapshot Content, now time.Time) error

	// ApplyRemote persists a store-wins overwrite of both content layers.
	ApplyRemote(ctx context.Context, id string, remote Content, remoteModified time.Time) error

	GetArticleByID(ctx context.Context, id string) (*Article, error)
	GetArticleByPlatformID(ctx context.Context, storeID, platformArticleID string) (*Article, error)
	UpsertArticle(ctx context.Context, a *Article) error
	ApplyArticlePushResult(ctx context.Context, id string, pushed []string, snapshot Content, now time.Time) error
}
