package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storesync/internal/domain/importer"
)

// ImportRepository stores import jobs, their chunks and category mirrors.
type ImportRepository struct {
	pool *pgxpool.Pool
}

func NewImportRepository(pool *pgxpool.Pool) *ImportRepository {
	return &ImportRepository{pool: pool}
}

const importJobColumns = `
	id, user_id, store_id, status, product_count, category_count, post_count,
	seo_plugin, chunked, imported_products, imported_categories,
	imported_posts, imported_variations, error, started_at, updated_at,
	completed_at
`

func scanImportJob(row pgx.Row) (*importer.SyncImportJob, error) {
	var job importer.SyncImportJob
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.StoreID,
		&job.Status,
		&job.ProductCount,
		&job.CategoryCount,
		&job.PostCount,
		&job.SEOPlugin,
		&job.Chunked,
		&job.ImportedProducts,
		&job.ImportedCategories,
		&job.ImportedPosts,
		&job.ImportedVariations,
		&job.Error,
		&job.StartedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ImportRepository) CreateJob(ctx context.Context, job *importer.SyncImportJob) (*importer.SyncImportJob, error) {
	query := `
		INSERT INTO sync_import_jobs (user_id, store_id, status, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		job.UserID, job.StoreID, job.Status, job.StartedAt, job.UpdatedAt,
	).Scan(&job.ID); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}
	return job, nil
}

func (r *ImportRepository) GetJob(ctx context.Context, id string) (*importer.SyncImportJob, error) {
	query := `SELECT ` + importJobColumns + ` FROM sync_import_jobs WHERE id = $1`

	job, err := scanImportJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, importer.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (r *ImportRepository) GetActiveJob(ctx context.Context, storeID string) (*importer.SyncImportJob, error) {
	query := `
		SELECT ` + importJobColumns + `
		FROM sync_import_jobs
		WHERE store_id = $1 AND status IN ('discovering', 'syncing')
		ORDER BY started_at DESC
		LIMIT 1
	`

	job, err := scanImportJob(r.pool.QueryRow(ctx, query, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active import job: %w", err)
	}
	return job, nil
}

func (r *ImportRepository) UpdateJob(ctx context.Context, job *importer.SyncImportJob) error {
	query := `
		UPDATE sync_import_jobs
		SET status = $1, product_count = $2, category_count = $3, post_count = $4,
		    seo_plugin = $5, chunked = $6, imported_products = $7,
		    imported_categories = $8, imported_posts = $9, imported_variations = $10,
		    error = $11, updated_at = $12, completed_at = $13
		WHERE id = $14
	`
	tag, err := r.pool.Exec(ctx, query,
		job.Status,
		job.ProductCount,
		job.CategoryCount,
		job.PostCount,
		job.SEOPlugin,
		job.Chunked,
		job.ImportedProducts,
		job.ImportedCategories,
		job.ImportedPosts,
		job.ImportedVariations,
		job.Error,
		job.UpdatedAt,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importer.ErrJobNotFound
	}
	return nil
}

// CreateChunks inserts chunks, skipping any that already exist for the job.
// A reprocessed products chunk re-announces its variation chunks; the unique
// key absorbs the duplicates.
func (r *ImportRepository) CreateChunks(ctx context.Context, chunks []*importer.ImportChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO import_chunks
			(import_job_id, kind, page, page_size, parent_external_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (import_job_id, kind, page, parent_external_id) DO NOTHING
		RETURNING id
	`
	for _, c := range chunks {
		err := r.pool.QueryRow(ctx, query,
			c.ImportJobID, c.Kind, c.Page, c.PageSize, c.ParentExternalID, c.Status,
		).Scan(&c.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // already planned
		}
		if err != nil {
			return fmt.Errorf("failed to create chunk: %w", err)
		}
	}
	return nil
}

const chunkColumns = `
	id, import_job_id, kind, page, page_size, parent_external_id, status,
	item_count, error, created_at, updated_at
`

// ClaimNextChunk picks one pending chunk with SKIP LOCKED. Categories come
// first, then products, variations and posts, in page order.
func (r *ImportRepository) ClaimNextChunk(ctx context.Context, jobID string) (*importer.ImportChunk, error) {
	query := `
		UPDATE import_chunks
		SET status = 'processing', updated_at = now()
		WHERE id = (
			SELECT id FROM import_chunks
			WHERE import_job_id = $1 AND status = 'pending'
			ORDER BY
				CASE kind
					WHEN 'categories' THEN 0
					WHEN 'products' THEN 1
					WHEN 'variations' THEN 2
					ELSE 3
				END,
				page ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + chunkColumns

	var c importer.ImportChunk
	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&c.ID,
		&c.ImportJobID,
		&c.Kind,
		&c.Page,
		&c.PageSize,
		&c.ParentExternalID,
		&c.Status,
		&c.ItemCount,
		&c.Error,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim chunk: %w", err)
	}
	return &c, nil
}

func (r *ImportRepository) UpdateChunk(ctx context.Context, chunk *importer.ImportChunk) error {
	query := `
		UPDATE import_chunks
		SET status = $1, item_count = $2, error = $3, updated_at = $4
		WHERE id = $5
	`
	if _, err := r.pool.Exec(ctx, query,
		chunk.Status, chunk.ItemCount, chunk.Error, chunk.UpdatedAt, chunk.ID,
	); err != nil {
		return fmt.Errorf("failed to update chunk: %w", err)
	}
	return nil
}

// ReleaseStuckChunks re-pends processing chunks orphaned by a crashed pass.
func (r *ImportRepository) ReleaseStuckChunks(ctx context.Context, jobID string, olderThan time.Time) (int, error) {
	query := `
		UPDATE import_chunks
		SET status = 'pending', updated_at = now()
		WHERE import_job_id = $1 AND status = 'processing' AND updated_at < $2
	`
	tag, err := r.pool.Exec(ctx, query, jobID, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to release stuck chunks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *ImportRepository) ChunkProgress(ctx context.Context, jobID string) (int, int, int, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('pending', 'processing')),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*)
		FROM import_chunks
		WHERE import_job_id = $1
	`

	var pending, failed, total int
	if err := r.pool.QueryRow(ctx, query, jobID).Scan(&pending, &failed, &total); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get chunk progress: %w", err)
	}
	return pending, failed, total, nil
}

func (r *ImportRepository) UpsertCategory(ctx context.Context, c *importer.Category) error {
	query := `
		INSERT INTO categories
			(store_id, platform_category_id, parent_platform_id, name, slug,
			 description, item_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (store_id, platform_category_id) DO UPDATE SET
			parent_platform_id = EXCLUDED.parent_platform_id,
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			item_count = EXCLUDED.item_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		c.StoreID, c.PlatformCategoryID, c.ParentPlatformID,
		c.Name, c.Slug, c.Description, c.ItemCount,
	).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

func (r *ImportRepository) ListCategories(ctx context.Context, storeID string) ([]*importer.Category, error) {
	query := `
		SELECT id, store_id, platform_category_id, parent_platform_id, name,
		       slug, description, item_count, created_at, updated_at
		FROM categories
		WHERE store_id = $1
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var cats []*importer.Category
	for rows.Next() {
		var c importer.Category
		if err := rows.Scan(
			&c.ID,
			&c.StoreID,
			&c.PlatformCategoryID,
			&c.ParentPlatformID,
			&c.Name,
			&c.Slug,
			&c.Description,
			&c.ItemCount,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, &c)
	}
	return cats, rows.Err()
}
