package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/product"
)

// ProductRepository stores the local product and article mirrors. Content
// layers live in jsonb columns, dirty fields in a text array.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `
	id, store_id, platform, platform_product_id, parent_platform_id,
	metadata, store_snapshot_content, working_content, dirty_fields,
	sync_status, is_variable, working_updated_at, store_last_modified_at,
	created_at, updated_at
`

func scanProduct(row pgx.Row) (*product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.Platform,
		&p.PlatformProductID,
		&p.ParentPlatformID,
		&p.Metadata,
		&p.StoreSnapshotContent,
		&p.WorkingContent,
		&p.DirtyFields,
		&p.SyncStatus,
		&p.IsVariable,
		&p.WorkingUpdatedAt,
		&p.StoreLastModifiedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) GetByPlatformID(ctx context.Context, storeID, platformProductID string) (*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE store_id = $1 AND platform_product_id = $2`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, storeID, platformProductID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by platform id: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	query := `
		INSERT INTO products
			(store_id, platform, platform_product_id, parent_platform_id,
			 metadata, store_snapshot_content, working_content, dirty_fields,
			 sync_status, is_variable, working_updated_at, store_last_modified_at,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (store_id, platform_product_id) DO UPDATE SET
			parent_platform_id = EXCLUDED.parent_platform_id,
			metadata = EXCLUDED.metadata,
			store_snapshot_content = EXCLUDED.store_snapshot_content,
			working_content = EXCLUDED.working_content,
			dirty_fields = EXCLUDED.dirty_fields,
			sync_status = EXCLUDED.sync_status,
			is_variable = EXCLUDED.is_variable,
			store_last_modified_at = EXCLUDED.store_last_modified_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		p.StoreID,
		p.Platform,
		p.PlatformProductID,
		p.ParentPlatformID,
		p.Metadata,
		p.StoreSnapshotContent,
		p.WorkingContent,
		p.DirtyFields,
		p.SyncStatus,
		p.IsVariable,
		p.WorkingUpdatedAt,
		p.StoreLastModifiedAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

// ApplyPushResult folds a successful push into the row in one statement, so
// an editor dirtying a field mid-push is never clobbered out of dirty_fields:
// pushed fields move into the snapshot (the platform's canonical value when
// it returned one, the pushed working value otherwise), drop out of the dirty
// set, and the status flips to synced when nothing dirty remains.
func (r *ProductRepository) ApplyPushResult(ctx context.Context, id string, pushed []string, snapshot product.Content, now time.Time) error {
	query := `
		UPDATE products
		SET store_snapshot_content = store_snapshot_content
		        || (SELECT COALESCE(jsonb_object_agg(key, value), '{}'::jsonb)
		            FROM jsonb_each(working_content)
		            WHERE key = ANY($2))
		        || $3,
		    dirty_fields = ARRAY(SELECT f FROM unnest(dirty_fields) AS f WHERE f <> ALL($2)),
		    sync_status = CASE
		        WHEN cardinality(ARRAY(SELECT f FROM unnest(dirty_fields) AS f WHERE f <> ALL($2))) = 0
		        THEN 'synced' ELSE sync_status END,
		    store_last_modified_at = $4, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, pushed, pushedSnapshot(pushed, snapshot), now)
	if err != nil {
		return fmt.Errorf("failed to apply push result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// pushedSnapshot projects the adapter's returned snapshot onto the pushed
// fields; values for fields that were not part of this push are ignored.
func pushedSnapshot(pushed []string, snapshot product.Content) product.Content {
	out := product.Content{}
	for _, f := range pushed {
		if v, ok := snapshot[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (r *ProductRepository) ApplyRemote(ctx context.Context, id string, remote product.Content, remoteModified time.Time) error {
	query := `
		UPDATE products
		SET store_snapshot_content = $1, working_content = $1,
		    dirty_fields = '{}', sync_status = 'synced',
		    store_last_modified_at = $2, updated_at = $3
		WHERE id = $4
	`
	tag, err := r.pool.Exec(ctx, query, remote, remoteModified, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to apply remote content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

const articleColumns = `
	id, store_id, platform_article_id, metadata, store_snapshot_content,
	working_content, dirty_fields, working_updated_at, store_last_modified_at,
	created_at, updated_at
`

func scanArticle(row pgx.Row) (*product.Article, error) {
	var a product.Article
	err := row.Scan(
		&a.ID,
		&a.StoreID,
		&a.PlatformArticleID,
		&a.Metadata,
		&a.StoreSnapshotContent,
		&a.WorkingContent,
		&a.DirtyFields,
		&a.WorkingUpdatedAt,
		&a.StoreLastModifiedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ProductRepository) GetArticleByID(ctx context.Context, id string) (*product.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	a, err := scanArticle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

func (r *ProductRepository) GetArticleByPlatformID(ctx context.Context, storeID, platformArticleID string) (*product.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE store_id = $1 AND platform_article_id = $2`

	a, err := scanArticle(r.pool.QueryRow(ctx, query, storeID, platformArticleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article by platform id: %w", err)
	}
	return a, nil
}

func (r *ProductRepository) UpsertArticle(ctx context.Context, a *product.Article) error {
	query := `
		INSERT INTO articles
			(store_id, platform_article_id, metadata, store_snapshot_content,
			 working_content, dirty_fields, working_updated_at, store_last_modified_at,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (store_id, platform_article_id) DO UPDATE SET
			metadata = EXCLUDED.metadata,
			store_snapshot_content = EXCLUDED.store_snapshot_content,
			working_content = EXCLUDED.working_content,
			dirty_fields = EXCLUDED.dirty_fields,
			store_last_modified_at = EXCLUDED.store_last_modified_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		a.StoreID,
		a.PlatformArticleID,
		a.Metadata,
		a.StoreSnapshotContent,
		a.WorkingContent,
		a.DirtyFields,
		a.WorkingUpdatedAt,
		a.StoreLastModifiedAt,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}
	return nil
}

// ApplyArticlePushResult is the same single-statement transition as
// ApplyPushResult, minus the sync status articles do not carry.
func (r *ProductRepository) ApplyArticlePushResult(ctx context.Context, id string, pushed []string, snapshot product.Content, now time.Time) error {
	query := `
		UPDATE articles
		SET store_snapshot_content = store_snapshot_content
		        || (SELECT COALESCE(jsonb_object_agg(key, value), '{}'::jsonb)
		            FROM jsonb_each(working_content)
		            WHERE key = ANY($2))
		        || $3,
		    dirty_fields = ARRAY(SELECT f FROM unnest(dirty_fields) AS f WHERE f <> ALL($2)),
		    store_last_modified_at = $4, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, pushed, pushedSnapshot(pushed, snapshot), now)
	if err != nil {
		return fmt.Errorf("failed to apply article push result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrArticleNotFound
	}
	return nil
}
