package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
	"storesync/internal/domain/product"
	"storesync/internal/platform"
)

// fakeRepo is an in-memory Repository; chunk claiming is inherently
// stateful, which makes call-scripted mocks a poor fit here.
type fakeRepo struct {
	jobs   map[string]*SyncImportJob
	chunks []*ImportChunk
	seq    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[string]*SyncImportJob)}
}

func (r *fakeRepo) CreateJob(ctx context.Context, job *SyncImportJob) (*SyncImportJob, error) {
	r.seq++
	job.ID = fmt.Sprintf("job-%d", r.seq)
	r.jobs[job.ID] = job
	return job, nil
}

func (r *fakeRepo) GetJob(ctx context.Context, id string) (*SyncImportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (r *fakeRepo) GetActiveJob(ctx context.Context, storeID string) (*SyncImportJob, error) {
	for _, job := range r.jobs {
		if job.StoreID == storeID && job.Active() {
			return job, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) UpdateJob(ctx context.Context, job *SyncImportJob) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) CreateChunks(ctx context.Context, chunks []*ImportChunk) error {
	for _, c := range chunks {
		if r.chunkExists(c) {
			continue
		}
		r.seq++
		c.ID = fmt.Sprintf("chunk-%d", r.seq)
		r.chunks = append(r.chunks, c)
	}
	return nil
}

// chunkExists mirrors the unique key on (job, kind, page, parent).
func (r *fakeRepo) chunkExists(c *ImportChunk) bool {
	for _, existing := range r.chunks {
		if existing.ImportJobID == c.ImportJobID &&
			existing.Kind == c.Kind &&
			existing.Page == c.Page &&
			existing.ParentExternalID == c.ParentExternalID {
			return true
		}
	}
	return false
}

func (r *fakeRepo) ClaimNextChunk(ctx context.Context, jobID string) (*ImportChunk, error) {
	for _, c := range r.chunks {
		if c.ImportJobID == jobID && c.Status == ChunkPending {
			c.Status = ChunkProcessing
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) UpdateChunk(ctx context.Context, chunk *ImportChunk) error {
	return nil
}

func (r *fakeRepo) ReleaseStuckChunks(ctx context.Context, jobID string, olderThan time.Time) (int, error) {
	released := 0
	for _, c := range r.chunks {
		if c.ImportJobID == jobID && c.Status == ChunkProcessing && c.UpdatedAt.Before(olderThan) {
			c.Status = ChunkPending
			released++
		}
	}
	return released, nil
}

func (r *fakeRepo) ChunkProgress(ctx context.Context, jobID string) (int, int, int, error) {
	pending, failed, total := 0, 0, 0
	for _, c := range r.chunks {
		if c.ImportJobID != jobID {
			continue
		}
		total++
		switch c.Status {
		case ChunkPending, ChunkProcessing:
			pending++
		case ChunkFailed:
			failed++
		}
	}
	return pending, failed, total, nil
}

// fakeProducts records upserts keyed by platform id.
type fakeProducts struct {
	byPlatformID map[string]*product.Product
	articles     []*product.Article
	seq          int
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{byPlatformID: make(map[string]*product.Product)}
}

func (f *fakeProducts) GetByID(ctx context.Context, id string) (*product.Product, error) {
	for _, p := range f.byPlatformID {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeProducts) GetByPlatformID(ctx context.Context, storeID, platformProductID string) (*product.Product, error) {
	if p, ok := f.byPlatformID[platformProductID]; ok && p.StoreID == storeID {
		return p, nil
	}
	return nil, product.ErrNotFound
}

func (f *fakeProducts) Upsert(ctx context.Context, p *product.Product) error {
	f.seq++
	p.ID = fmt.Sprintf("prod-%d", f.seq)
	f.byPlatformID[p.PlatformProductID] = p
	return nil
}

func (f *fakeProducts) ApplyPushResult(ctx context.Context, id string, pushed []string, snapshot product.Content, now time.Time) error {
	return nil
}

func (f *fakeProducts) ApplyRemote(ctx context.Context, id string, remote product.Content, remoteModified time.Time) error {
	for _, p := range f.byPlatformID {
		if p.ID == id {
			p.ApplyRemote(remote, remoteModified)
			return nil
		}
	}
	return product.ErrNotFound
}

func (f *fakeProducts) GetArticleByID(ctx context.Context, id string) (*product.Article, error) {
	return nil, product.ErrArticleNotFound
}

func (f *fakeProducts) GetArticleByPlatformID(ctx context.Context, storeID, platformArticleID string) (*product.Article, error) {
	return nil, product.ErrArticleNotFound
}

func (f *fakeProducts) UpsertArticle(ctx context.Context, a *product.Article) error {
	f.articles = append(f.articles, a)
	return nil
}

func (f *fakeProducts) ApplyArticlePushResult(ctx context.Context, id string, pushed []string, snapshot product.Content, now time.Time) error {
	return nil
}

type fakeCategories struct {
	saved []*Category
}

func (f *fakeCategories) UpsertCategory(ctx context.Context, c *Category) error {
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeCategories) ListCategories(ctx context.Context, storeID string) ([]*Category, error) {
	return f.saved, nil
}

type fakeCreds struct{}

func (fakeCreds) Resolve(ctx context.Context, storeID string) (*credential.Credentials, error) {
	return &credential.Credentials{Platform: "fake", APIURL: "https://shop.test"}, nil
}
func (fakeCreds) Connection(ctx context.Context, storeID string) (*credential.StoreConnection, error) {
	return &credential.StoreConnection{ID: storeID, UserID: 1}, nil
}
func (fakeCreds) ListForUser(ctx context.Context, userID int) ([]*credential.StoreConnection, error) {
	return nil, nil
}
func (fakeCreds) SaveConnection(ctx context.Context, conn *credential.StoreConnection, creds *credential.Credentials) error {
	return nil
}
func (fakeCreds) DeleteConnection(ctx context.Context, storeID string, userID int) error {
	return nil
}
func (fakeCreds) CheckOwnership(ctx context.Context, storeID string, userID int) error {
	return nil
}

// fakeAdapter serves a deterministic catalog.
type fakeAdapter struct {
	counts     platform.Counts
	pages      map[int][]*platform.RemoteItem
	variations map[string][]*platform.RemoteItem
	categories []*platform.RemoteItem
	posts      map[int][]*platform.RemoteItem
	pageErr    error
}

func (a *fakeAdapter) UpdateProduct(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	return &platform.SyncResult{Success: true}, nil
}
func (a *fakeAdapter) UpdateArticle(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	return &platform.SyncResult{Success: true}, nil
}
func (a *fakeAdapter) Count(ctx context.Context) (*platform.Counts, error) {
	return &a.counts, nil
}
func (a *fakeAdapter) DetectSEOPlugin(ctx context.Context) (string, error) {
	return "yoast", nil
}
func (a *fakeAdapter) FetchProductsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	if a.pageErr != nil {
		return nil, a.pageErr
	}
	return a.pages[page], nil
}
func (a *fakeAdapter) FetchVariations(ctx context.Context, externalID string) ([]*platform.RemoteItem, error) {
	return a.variations[externalID], nil
}
func (a *fakeAdapter) FetchCategories(ctx context.Context) ([]*platform.RemoteItem, error) {
	return a.categories, nil
}
func (a *fakeAdapter) FetchPostsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	return a.posts[page], nil
}
func (a *fakeAdapter) FetchProductsModifiedSince(ctx context.Context, since time.Time) ([]*platform.RemoteItem, error) {
	return nil, nil
}

type importFixture struct {
	svc      *Service
	repo     *fakeRepo
	products *fakeProducts
	cats     *fakeCategories
	adapter  *fakeAdapter
}

func newImportFixture(t *testing.T, adapter *fakeAdapter, cfg Config) *importFixture {
	t.Helper()

	f := &importFixture{
		repo:     newFakeRepo(),
		products: newFakeProducts(),
		cats:     &fakeCategories{},
		adapter:  adapter,
	}

	registry := platform.NewRegistry()
	registry.Register("fake", func(c *credential.Credentials) platform.Adapter { return f.adapter })

	f.svc = NewService(f.repo, f.products, f.cats, fakeCreds{}, registry, cfg, slog.Default())
	return f
}

func item(id, title string) *platform.RemoteItem {
	return &platform.RemoteItem{
		ExternalID: id,
		Fields:     map[string]any{"title": title, "sku": "SKU-" + id},
	}
}

func TestStart_SmallCatalogImportsSynchronously(t *testing.T) {
	adapter := &fakeAdapter{
		counts: platform.Counts{Products: 2, Categories: 1},
		pages:  map[int][]*platform.RemoteItem{1: {item("1", "A"), item("2", "B")}},
		categories: []*platform.RemoteItem{{
			ExternalID: "10",
			Fields:     map[string]any{"title": "Shoes", "slug": "shoes", "item_count": 2},
		}},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 50, ChunkedThreshold: 100})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	assert.False(t, job.Chunked)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 2, job.ImportedProducts)
	assert.Equal(t, 1, job.ImportedCategories)
	assert.Equal(t, "yoast", job.SEOPlugin)
	assert.NotNil(t, job.CompletedAt)
	assert.Len(t, f.products.byPlatformID, 2)
	assert.Len(t, f.cats.saved, 1)

	// Both content layers populated, nothing dirty.
	p := f.products.byPlatformID["1"]
	assert.Equal(t, "A", p.WorkingContent["title"])
	assert.Equal(t, "A", p.StoreSnapshotContent["title"])
	assert.Empty(t, p.DirtyFields)
	assert.Equal(t, "synced", p.SyncStatus)
}

func TestStart_LargeCatalogPlansChunks(t *testing.T) {
	adapter := &fakeAdapter{counts: platform.Counts{Products: 237}}
	f := newImportFixture(t, adapter, Config{PageSize: 50, ChunkedThreshold: 100})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	assert.True(t, job.Chunked)
	assert.Equal(t, StatusSyncing, job.Status)

	pending, failed, total, err := f.repo.ChunkProgress(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, 5, pending)
	assert.Zero(t, failed)
}

func TestStart_ResumesActiveJob(t *testing.T) {
	adapter := &fakeAdapter{counts: platform.Counts{Products: 237}}
	f := newImportFixture(t, adapter, Config{PageSize: 50, ChunkedThreshold: 100})

	first, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	second, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStart_ForceRestartAbandonsActiveJob(t *testing.T) {
	adapter := &fakeAdapter{counts: platform.Counts{Products: 237}}
	f := newImportFixture(t, adapter, Config{PageSize: 50, ChunkedThreshold: 100})

	first, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	second, err := f.svc.Start(context.Background(), 1, "store-1", true)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StatusFailed, first.Status)
}

func TestRun_StopsOnTimeBudgetAndResumes(t *testing.T) {
	adapter := &fakeAdapter{
		counts: platform.Counts{Products: 150},
		pages: map[int][]*platform.RemoteItem{
			1: {item("1", "A")},
			2: {item("2", "B")},
			3: {item("3", "C")},
		},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 50, ChunkedThreshold: 100, TimeBudget: 50 * time.Second})

	// Each clock read advances 30s, so the second budget check trips.
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 30 * time.Second)
	}

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	res, err := f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	assert.True(t, res.CanResume)
	assert.Equal(t, 1, res.ChunksProcessed)
	assert.Equal(t, 2, res.ChunksPending)

	// Re-invoking continues where the budget cut off.
	res, err = f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunksProcessed)
}

func TestRun_VariableProductSchedulesVariationChunk(t *testing.T) {
	variable := item("52", "Shirt")
	variable.IsVariable = true

	adapter := &fakeAdapter{
		counts: platform.Counts{Products: 101},
		pages:  map[int][]*platform.RemoteItem{1: {variable}},
		variations: map[string][]*platform.RemoteItem{
			"52": {item("521", "Shirt S"), item("522", "Shirt M")},
		},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 150, ChunkedThreshold: 100, TimeBudget: time.Hour})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	res, err := f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	assert.False(t, res.CanResume)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 1, job.ImportedProducts)
	assert.Equal(t, 2, job.ImportedVariations)

	v := f.products.byPlatformID["521"]
	require.NotNil(t, v)
	assert.Equal(t, "52", v.ParentPlatformID)
	assert.Equal(t, "Shirt S", v.WorkingContent["title"])
}

func TestRun_DeduplicatesWithinPage(t *testing.T) {
	adapter := &fakeAdapter{
		counts: platform.Counts{Products: 101},
		pages: map[int][]*platform.RemoteItem{
			1: {item("1", "A"), item("1", "A again"), item("2", "B")},
		},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 150, ChunkedThreshold: 100, TimeBudget: time.Hour})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	_, err = f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, job.ImportedProducts)
	assert.Equal(t, "A", f.products.byPlatformID["1"].WorkingContent["title"])
}

func TestRun_ReimportOverwritesLocalEdits(t *testing.T) {
	adapter := &fakeAdapter{
		counts: platform.Counts{Products: 101},
		pages:  map[int][]*platform.RemoteItem{1: {item("1", "Remote Title")}},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 150, ChunkedThreshold: 100, TimeBudget: time.Hour})

	// Pre-existing mirror with a local edit.
	existing := &product.Product{
		StoreID:           "store-1",
		PlatformProductID: "1",
		WorkingContent:    product.Content{"title": "Local Edit"},
		DirtyFields:       []string{"title"},
	}
	require.NoError(t, f.products.Upsert(context.Background(), existing))

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)
	_, err = f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	p := f.products.byPlatformID["1"]
	assert.Equal(t, "Remote Title", p.WorkingContent["title"])
	assert.Empty(t, p.DirtyFields)
}

func TestRun_FailedChunkFailsJob(t *testing.T) {
	adapter := &fakeAdapter{
		counts:  platform.Counts{Products: 101},
		pageErr: errors.New("store exploded"),
	}
	f := newImportFixture(t, adapter, Config{PageSize: 150, ChunkedThreshold: 100, TimeBudget: time.Hour})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	res, err := f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, res.Status)
	assert.False(t, res.CanResume)
	assert.Equal(t, 1, res.ChunksFailed)
	assert.Equal(t, "1 of 1 chunks failed", job.Error)

	// A failed job is not resumable; restarting is the retry path.
	_, err = f.svc.Run(context.Background(), 1, job.ID)
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestRun_ReleasesStuckChunks(t *testing.T) {
	adapter := &fakeAdapter{
		counts: platform.Counts{Products: 101},
		pages:  map[int][]*platform.RemoteItem{1: {item("1", "A")}},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 150, ChunkedThreshold: 100, TimeBudget: time.Hour, StuckAfter: 10 * time.Minute})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	// A crashed pass left the only chunk claimed an hour ago.
	f.repo.chunks[0].Status = ChunkProcessing
	f.repo.chunks[0].UpdatedAt = time.Now().Add(-time.Hour)

	res, err := f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 1, res.ChunksProcessed)
	assert.False(t, res.CanResume)
}

func TestRun_ReprocessedChunkDoesNotDuplicateVariationChunks(t *testing.T) {
	variable := item("52", "Shirt")
	variable.IsVariable = true

	adapter := &fakeAdapter{
		counts:     platform.Counts{Products: 101},
		pages:      map[int][]*platform.RemoteItem{1: {variable}},
		variations: map[string][]*platform.RemoteItem{"52": {item("521", "Shirt S")}},
	}
	f := newImportFixture(t, adapter, Config{PageSize: 150, ChunkedThreshold: 100, TimeBudget: time.Hour})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)
	_, err = f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	// A released-and-reclaimed products chunk announces its variation
	// chunks a second time.
	job.Status = StatusSyncing
	for _, c := range f.repo.chunks {
		if c.Kind == KindProducts {
			c.Status = ChunkPending
		}
	}
	_, err = f.svc.Run(context.Background(), 1, job.ID)
	require.NoError(t, err)

	variationChunks := 0
	for _, c := range f.repo.chunks {
		if c.Kind == KindVariations && c.ParentExternalID == "52" {
			variationChunks++
		}
	}
	assert.Equal(t, 1, variationChunks)
}

func TestRun_WrongUserRejected(t *testing.T) {
	adapter := &fakeAdapter{counts: platform.Counts{Products: 237}}
	f := newImportFixture(t, adapter, Config{PageSize: 50, ChunkedThreshold: 100})

	job, err := f.svc.Start(context.Background(), 1, "store-1", false)
	require.NoError(t, err)

	_, err = f.svc.Run(context.Background(), 2, job.ID)
	assert.ErrorIs(t, err, credential.ErrNotOwner)
}
