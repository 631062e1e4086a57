package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
	"storesync/internal/domain/product"
	"storesync/internal/platform"
)

// Config tunes the import pipeline.
type Config struct {
	// PageSize is the remote fetch size and the chunk granularity.
	PageSize int
	// ChunkedThreshold is the catalog size above which the import runs as
	// resumable chunks instead of one synchronous pass.
	ChunkedThreshold int
	// TimeBudget bounds one chunked processing pass so it finishes inside
	// an HTTP request deadline. The caller re-invokes while CanResume.
	TimeBudget time.Duration
	// StuckAfter is how long a chunk may sit in processing before it is
	// assumed orphaned by a crashed pass and released back to pending.
	StuckAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.ChunkedThreshold <= 0 {
		c.ChunkedThreshold = 100
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = 50 * time.Second
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 10 * time.Minute
	}
	return c
}

// Servicer drives store catalog imports.
type Servicer interface {
	// Start begins (or resumes) an import for the store. Small catalogs are
	// imported before Start returns; large ones leave chunks behind for Run.
	Start(ctx context.Context, userID int, storeID string, forceRestart bool) (*SyncImportJob, error)

	// Run processes pending chunks until done or out of time budget.
	Run(ctx context.Context, userID int, jobID string) (*RunResult, error)

	// Progress reports chunk completion for a job.
	Progress(ctx context.Context, jobID string) (*Status, error)
}

type Service struct {
	repo       Repository
	products   product.Repository
	categories CategoryStore
	creds      credential.Servicer
	registry   *platform.Registry
	cfg        Config
	log        *slog.Logger

	now func() time.Time
}

func NewService(
	repo Repository,
	products product.Repository,
	categories CategoryStore,
	creds credential.Servicer,
	registry *platform.Registry,
	cfg Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		products:   products,
		categories: categories,
		creds:      creds,
		registry:   registry,
		cfg:        cfg.withDefaults(),
		log:        log.With(slog.String("component", "import")),
		now:        time.Now,
	}
}

func (s *Service) Start(ctx context.Context, userID int, storeID string, forceRestart bool) (*SyncImportJob, error) {
	if err := s.creds.CheckOwnership(ctx, storeID, userID); err != nil {
		return nil, err
	}

	if active, err := s.repo.GetActiveJob(ctx, storeID); err != nil && !errors.Is(err, ErrJobNotFound) {
		return nil, fmt.Errorf("check active import: %w", err)
	} else if active != nil {
		if !forceRestart {
			// An interrupted import resumes where it left off.
			s.log.Info("resuming import", "job_id", active.ID, "store_id", storeID)
			return active, nil
		}
		active.Status = StatusFailed
		active.Error = "restarted by user"
		active.UpdatedAt = s.now()
		if err := s.repo.UpdateJob(ctx, active); err != nil {
			return nil, fmt.Errorf("abandon previous import: %w", err)
		}
	}

	adapter, err := s.adapterFor(ctx, storeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	job, err := s.repo.CreateJob(ctx, &SyncImportJob{
		UserID:    userID,
		StoreID:   storeID,
		Status:    StatusDiscovering,
		StartedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	counts, err := adapter.Count(ctx)
	if err != nil {
		return nil, s.failJob(ctx, job, fmt.Errorf("discovery failed: %w", err))
	}
	job.ProductCount = counts.Products
	job.CategoryCount = counts.Categories
	job.PostCount = counts.Posts

	if plugin, err := adapter.DetectSEOPlugin(ctx); err != nil {
		s.log.Warn("seo plugin detection failed", "store_id", storeID, "error", err)
	} else {
		job.SEOPlugin = plugin
	}

	total := counts.Products + counts.Categories + counts.Posts
	job.Chunked = total > s.cfg.ChunkedThreshold

	chunks := PlanChunks(job.ID, counts.Products, counts.Categories, counts.Posts, s.cfg.PageSize)
	for _, c := range chunks {
		c.ImportJobID = job.ID
	}
	if err := s.repo.CreateChunks(ctx, chunks); err != nil {
		return nil, s.failJob(ctx, job, fmt.Errorf("plan chunks: %w", err))
	}

	job.Status = StatusSyncing
	job.UpdatedAt = s.now()
	if err := s.repo.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update import job: %w", err)
	}
	s.log.Info("import started",
		"job_id", job.ID,
		"store_id", storeID,
		"products", counts.Products,
		"categories", counts.Categories,
		"posts", counts.Posts,
		"chunked", job.Chunked,
	)

	if !job.Chunked {
		// Small catalog: finish synchronously with no time budget.
		if _, err := s.run(ctx, job, adapter, 0); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func (s *Service) Run(ctx context.Context, userID int, jobID string) (*RunResult, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, credential.ErrNotOwner
	}
	if !job.Active() {
		return nil, ErrNotResumable
	}

	adapter, err := s.adapterFor(ctx, job.StoreID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, job, adapter, s.cfg.TimeBudget)
}

func (s *Service) Progress(ctx context.Context, jobID string) (*Status, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	pending, failed, total, err := s.repo.ChunkProgress(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("chunk progress: %w", err)
	}
	return &Status{Job: job, ChunksPending: pending, ChunksFailed: failed, ChunksTotal: total}, nil
}

// run is the chunk loop. A zero budget means run to completion.
func (s *Service) run(ctx context.Context, job *SyncImportJob, adapter platform.Adapter, budget time.Duration) (*RunResult, error) {
	start := s.now()
	processed, imported := 0, 0

	if released, err := s.repo.ReleaseStuckChunks(ctx, job.ID, start.Add(-s.cfg.StuckAfter)); err != nil {
		s.log.Warn("failed to release stuck chunks", "job_id", job.ID, "error", err)
	} else if released > 0 {
		s.log.Warn("released stuck chunks", "job_id", job.ID, "count", released)
	}

	for {
		if ctx.Err() != nil {
			break
		}
		if budget > 0 && s.now().Sub(start) >= budget {
			break
		}

		chunk, err := s.repo.ClaimNextChunk(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("claim chunk: %w", err)
		}
		if chunk == nil {
			break
		}

		n, err := s.processChunk(ctx, adapter, job, chunk)
		now := s.now()
		chunk.UpdatedAt = now
		if err != nil {
			chunk.Status = ChunkFailed
			chunk.Error = err.Error()
			s.log.Warn("chunk failed",
				"job_id", job.ID,
				"kind", chunk.Kind,
				"page", chunk.Page,
				"error", err,
			)
		} else {
			chunk.Status = ChunkCompleted
			chunk.ItemCount = n
			imported += n
		}
		if err := s.repo.UpdateChunk(ctx, chunk); err != nil {
			return nil, fmt.Errorf("update chunk: %w", err)
		}
		processed++

		job.UpdatedAt = now
		if err := s.repo.UpdateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("update import job: %w", err)
		}
	}

	pending, failed, total, err := s.repo.ChunkProgress(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("chunk progress: %w", err)
	}

	// Nothing left to claim: the job is done, one way or the other. A single
	// failed chunk fails the whole job; restarting is the retry path.
	if pending == 0 && job.Status == StatusSyncing {
		now := s.now()
		job.UpdatedAt = now
		if failed > 0 {
			job.Status = StatusFailed
			job.Error = fmt.Sprintf("%d of %d chunks failed", failed, total)
			if err := s.repo.UpdateJob(ctx, job); err != nil {
				return nil, fmt.Errorf("fail import job: %w", err)
			}
			s.log.Warn("import failed",
				"job_id", job.ID,
				"store_id", job.StoreID,
				"failed_chunks", failed,
				"total_chunks", total,
			)
		} else {
			job.Status = StatusCompleted
			job.CompletedAt = &now
			if err := s.repo.UpdateJob(ctx, job); err != nil {
				return nil, fmt.Errorf("complete import job: %w", err)
			}
			s.log.Info("import completed",
				"job_id", job.ID,
				"store_id", job.StoreID,
				"products", job.ImportedProducts,
				"variations", job.ImportedVariations,
				"categories", job.ImportedCategories,
				"posts", job.ImportedPosts,
				"duration", now.Sub(job.StartedAt).String(),
			)
		}
	}

	return &RunResult{
		JobID:           job.ID,
		Status:          job.Status,
		ChunksProcessed: processed,
		ChunksPending:   pending,
		ChunksFailed:    failed,
		ChunksTotal:     total,
		CanResume:       pending > 0,
		ItemsImported:   imported,
		DurationSeconds: s.now().Sub(start).Seconds(),
	}, nil
}

func (s *Service) processChunk(ctx context.Context, adapter platform.Adapter, job *SyncImportJob, chunk *ImportChunk) (int, error) {
	switch chunk.Kind {
	case KindCategories:
		return s.importCategories(ctx, adapter, job)
	case KindProducts:
		return s.importProductPage(ctx, adapter, job, chunk)
	case KindVariations:
		return s.importVariations(ctx, adapter, job, chunk.ParentExternalID)
	case KindPosts:
		return s.importPostPage(ctx, adapter, job, chunk)
	default:
		return 0, fmt.Errorf("unknown chunk kind %q", chunk.Kind)
	}
}

func (s *Service) importCategories(ctx context.Context, adapter platform.Adapter, job *SyncImportJob) (int, error) {
	items, err := adapter.FetchCategories(ctx)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		c := &Category{
			StoreID:            job.StoreID,
			PlatformCategoryID: item.ExternalID,
			Name:               stringField(item.Fields, "title"),
			Slug:               stringField(item.Fields, "slug"),
			Description:        stringField(item.Fields, "description"),
			ParentPlatformID:   stringField(item.Fields, "parent_id"),
		}
		if n, ok := item.Fields["item_count"].(int); ok {
			c.ItemCount = n
		}
		if err := s.categories.UpsertCategory(ctx, c); err != nil {
			return 0, fmt.Errorf("upsert category %s: %w", item.ExternalID, err)
		}
	}
	job.ImportedCategories += len(items)
	return len(items), nil
}

func (s *Service) importProductPage(ctx context.Context, adapter platform.Adapter, job *SyncImportJob, chunk *ImportChunk) (int, error) {
	items, err := adapter.FetchProductsPage(ctx, chunk.Page, chunk.PageSize)
	if err != nil {
		return 0, err
	}
	items = s.dedupe(job, items)

	count := 0
	for _, item := range items {
		if err := s.upsertRemoteProduct(ctx, job, item, ""); err != nil {
			return count, err
		}
		count++

		if item.IsVariable {
			// Variations are a separate chunk so one oversized product
			// cannot blow this chunk's share of the time budget.
			err := s.repo.CreateChunks(ctx, []*ImportChunk{{
				ImportJobID:      job.ID,
				Kind:             KindVariations,
				ParentExternalID: item.ExternalID,
				Status:           ChunkPending,
			}})
			if err != nil {
				return count, fmt.Errorf("schedule variations for %s: %w", item.ExternalID, err)
			}
		}
	}
	job.ImportedProducts += count
	return count, nil
}

func (s *Service) importVariations(ctx context.Context, adapter platform.Adapter, job *SyncImportJob, parentID string) (int, error) {
	items, err := adapter.FetchVariations(ctx, parentID)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if err := s.upsertRemoteProduct(ctx, job, item, parentID); err != nil {
			return 0, err
		}
	}
	job.ImportedVariations += len(items)
	return len(items), nil
}

// upsertRemoteProduct writes one remote item into the mirror with both
// content layers set to the remote state and nothing dirty.
func (s *Service) upsertRemoteProduct(ctx context.Context, job *SyncImportJob, item *platform.RemoteItem, parentID string) error {
	remote := product.Content(item.Fields)

	existing, err := s.products.GetByPlatformID(ctx, job.StoreID, item.ExternalID)
	switch {
	case err == nil:
		// Re-import: remote state wins over whatever is local.
		return s.products.ApplyRemote(ctx, existing.ID, remote, item.DateModified)
	case errors.Is(err, product.ErrNotFound):
	default:
		return fmt.Errorf("lookup product %s: %w", item.ExternalID, err)
	}

	now := s.now()
	p := &product.Product{
		StoreID:             job.StoreID,
		PlatformProductID:   item.ExternalID,
		ParentPlatformID:    parentID,
		IsVariable:          item.IsVariable,
		SyncStatus:          "synced",
		StoreLastModifiedAt: item.DateModified,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	p.Metadata = product.Content(item.Raw)
	if p.Metadata == nil {
		p.Metadata = cloneContent(remote)
	}
	p.StoreSnapshotContent = cloneContent(remote)
	p.WorkingContent = cloneContent(remote)

	if err := s.products.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %s: %w", item.ExternalID, err)
	}
	return nil
}

func (s *Service) importPostPage(ctx context.Context, adapter platform.Adapter, job *SyncImportJob, chunk *ImportChunk) (int, error) {
	items, err := adapter.FetchPostsPage(ctx, chunk.Page, chunk.PageSize)
	if err != nil {
		return 0, err
	}
	items = s.dedupe(job, items)

	now := s.now()
	for _, item := range items {
		remote := product.Content(item.Fields)
		a := &product.Article{
			StoreID:             job.StoreID,
			PlatformArticleID:   item.ExternalID,
			Metadata:            product.Content(item.Raw),
			StoreSnapshotContent: cloneContent(remote),
			WorkingContent:      cloneContent(remote),
			StoreLastModifiedAt: item.DateModified,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if a.Metadata == nil {
			a.Metadata = cloneContent(remote)
		}
		if err := s.products.UpsertArticle(ctx, a); err != nil {
			return 0, fmt.Errorf("upsert article %s: %w", item.ExternalID, err)
		}
	}
	job.ImportedPosts += len(items)
	return len(items), nil
}

// dedupe drops repeated external ids inside one fetched page. Stores with
// misbehaving pagination plugins do return duplicates.
func (s *Service) dedupe(job *SyncImportJob, items []*platform.RemoteItem) []*platform.RemoteItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, dup := seen[item.ExternalID]; dup {
			s.log.Warn("duplicate item in page, skipping",
				"job_id", job.ID,
				"external_id", item.ExternalID,
			)
			continue
		}
		seen[item.ExternalID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func (s *Service) adapterFor(ctx context.Context, storeID string) (platform.Adapter, error) {
	creds, err := s.creds.Resolve(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("resolve store connection: %w", err)
	}
	return s.registry.Resolve(creds)
}

func (s *Service) failJob(ctx context.Context, job *SyncImportJob, cause error) error {
	job.Status = StatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = s.now()
	if err := s.repo.UpdateJob(ctx, job); err != nil {
		s.log.Error("failed to mark import failed", "job_id", job.ID, "error", err)
	}
	return cause
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func cloneContent(c product.Content) product.Content {
	out := make(product.Content, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
