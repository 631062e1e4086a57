package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
	"storesync/internal/domain/product"
	"storesync/internal/platform"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Enqueue(ctx context.Context, job *SyncJob) (*SyncJob, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncJob), args.Error(1)
}

func (m *MockRepository) ClaimPending(ctx context.Context, limit int, now time.Time) ([]*SyncJob, error) {
	args := m.Called(ctx, limit, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SyncJob), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, job *SyncJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncJob), args.Error(1)
}

func (m *MockRepository) ListByStore(ctx context.Context, storeID string, statuses []string, limit int) ([]*SyncJob, error) {
	args := m.Called(ctx, storeID, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SyncJob), args.Error(1)
}

func (m *MockRepository) Stats(ctx context.Context, storeID string) (*QueueStats, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QueueStats), args.Error(1)
}

func (m *MockRepository) ReleaseStuck(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) GetByPlatformID(ctx context.Context, storeID, platformProductID string) (*product.Product, error) {
	args := m.Called(ctx, storeID, platformProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) ApplyPushResult(ctx context.Context, id string, pushed []string, snapshot product.Content, now time.Time) error {
	return m.Called(ctx, id, pushed, snapshot, now).Error(0)
}

func (m *MockProductRepository) ApplyRemote(ctx context.Context, id string, remote product.Content, remoteModified time.Time) error {
	return m.Called(ctx, id, remote, remoteModified).Error(0)
}

func (m *MockProductRepository) GetArticleByID(ctx context.Context, id string) (*product.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Article), args.Error(1)
}

func (m *MockProductRepository) GetArticleByPlatformID(ctx context.Context, storeID, platformArticleID string) (*product.Article, error) {
	args := m.Called(ctx, storeID, platformArticleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Article), args.Error(1)
}

func (m *MockProductRepository) UpsertArticle(ctx context.Context, a *product.Article) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockProductRepository) ApplyArticlePushResult(ctx context.Context, id string, pushed []string, snapshot product.Content, now time.Time) error {
	return m.Called(ctx, id, pushed, snapshot, now).Error(0)
}

type MockCredentialService struct {
	mock.Mock
}

func (m *MockCredentialService) Resolve(ctx context.Context, storeID string) (*credential.Credentials, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.Credentials), args.Error(1)
}

func (m *MockCredentialService) Connection(ctx context.Context, storeID string) (*credential.StoreConnection, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.StoreConnection), args.Error(1)
}

func (m *MockCredentialService) ListForUser(ctx context.Context, userID int) ([]*credential.StoreConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credential.StoreConnection), args.Error(1)
}

func (m *MockCredentialService) SaveConnection(ctx context.Context, conn *credential.StoreConnection, creds *credential.Credentials) error {
	return m.Called(ctx, conn, creds).Error(0)
}

func (m *MockCredentialService) DeleteConnection(ctx context.Context, storeID string, userID int) error {
	return m.Called(ctx, storeID, userID).Error(0)
}

func (m *MockCredentialService) CheckOwnership(ctx context.Context, storeID string, userID int) error {
	return m.Called(ctx, storeID, userID).Error(0)
}

// stubAdapter scripts UpdateProduct outcomes call by call.
type stubAdapter struct {
	mu      sync.Mutex
	results []*platform.SyncResult
	calls   int
}

func (s *stubAdapter) UpdateProduct(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.results[s.calls%len(s.results)]
	s.calls++
	return res, nil
}

func (s *stubAdapter) UpdateArticle(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	return s.UpdateProduct(ctx, externalID, payload, dirtyFields)
}

func (s *stubAdapter) Count(ctx context.Context) (*platform.Counts, error) { return nil, nil }
func (s *stubAdapter) DetectSEOPlugin(ctx context.Context) (string, error) { return "", nil }
func (s *stubAdapter) FetchProductsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	return nil, nil
}
func (s *stubAdapter) FetchVariations(ctx context.Context, externalID string) ([]*platform.RemoteItem, error) {
	return nil, nil
}
func (s *stubAdapter) FetchCategories(ctx context.Context) ([]*platform.RemoteItem, error) {
	return nil, nil
}
func (s *stubAdapter) FetchPostsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	return nil, nil
}
func (s *stubAdapter) FetchProductsModifiedSince(ctx context.Context, since time.Time) ([]*platform.RemoteItem, error) {
	return nil, nil
}

type serviceFixture struct {
	svc      *Service
	repo     *MockRepository
	products *MockProductRepository
	creds    *MockCredentialService
	adapter  *stubAdapter
	now      time.Time
}

func newFixture(t *testing.T, results ...*platform.SyncResult) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		repo:     new(MockRepository),
		products: new(MockProductRepository),
		creds:    new(MockCredentialService),
		adapter:  &stubAdapter{results: results},
		now:      time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}

	registry := platform.NewRegistry()
	registry.Register("woocommerce", func(c *credential.Credentials) platform.Adapter {
		return f.adapter
	})

	f.svc = NewService(f.repo, f.products, f.creds, registry, nil, Config{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		BackoffCap:  300 * time.Second,
	}, slog.Default())
	f.svc.now = func() time.Time { return f.now }
	f.svc.sleep = func(ctx context.Context, d time.Duration) {}
	return f
}

func testJob() *SyncJob {
	return &SyncJob{
		ID:          "job-1",
		StoreID:     "store-1",
		EntityType:  EntityProduct,
		EntityID:    "prod-1",
		Fields:      []string{"title", "regular_price"},
		Status:      StatusProcessing,
		MaxAttempts: 3,
	}
}

func testProduct() *product.Product {
	return &product.Product{
		ID:                "prod-1",
		StoreID:           "store-1",
		PlatformProductID: "42",
		WorkingContent:    product.Content{"title": "New", "regular_price": "19.99"},
		DirtyFields:       []string{"title", "regular_price"},
	}
}

func wooCreds() *credential.Credentials {
	return &credential.Credentials{Platform: "woocommerce", APIURL: "https://shop.test"}
}

func TestProcessJob_SuccessCompletesAndPersistsSnapshot(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{
		Success:         true,
		UpdatedSnapshot: map[string]any{"regular_price": "20.00"},
	})

	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(testProduct(), nil)
	f.products.On("ApplyPushResult", mock.Anything, "prod-1",
		[]string{"title", "regular_price"},
		product.Content{"regular_price": "20.00"},
		f.now,
	).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	jr := f.svc.processJob(context.Background(), testJob())

	assert.Equal(t, StatusCompleted, jr.Status)
	assert.Equal(t, 1, jr.AttemptCount)
	f.products.AssertExpectations(t)
}

func TestProcessJob_RetryableFailureSchedulesBackoff(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{
		Success:   false,
		Error:     "store temporarily unavailable (status 503)",
		Retryable: true,
	})

	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(testProduct(), nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	job := testJob()
	jr := f.svc.processJob(context.Background(), job)

	assert.Equal(t, StatusPending, jr.Status)
	assert.Equal(t, 1, jr.AttemptCount)
	// attempt 1 waits base*2.
	assert.Equal(t, f.now.Add(2*time.Second), job.NextAttemptAt)
}

func TestProcessJob_ExhaustedRetriesDeadLetter(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{
		Success:   false,
		Error:     "store temporarily unavailable (status 503)",
		Retryable: true,
	})

	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(testProduct(), nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	job := testJob()
	for i := 0; i < 3; i++ {
		f.svc.processJob(context.Background(), job)
	}

	assert.Equal(t, StatusDeadLetter, job.Status)
	assert.Equal(t, 3, job.AttemptCount)

	// Terminal: further passes must not claim it, and the error survives.
	assert.Contains(t, job.LastError, "503")
}

func TestProcessJob_PermanentErrorDeadLettersImmediately(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{
		Success:   false,
		Error:     "duplicate SKU rejected by store",
		Retryable: false,
	})

	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(testProduct(), nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	job := testJob()
	jr := f.svc.processJob(context.Background(), job)

	assert.Equal(t, StatusDeadLetter, jr.Status)
	assert.Equal(t, 1, jr.AttemptCount)
	assert.Equal(t, "permanent: duplicate SKU rejected by store", job.LastError)
}

func TestProcessJob_MissingConnectionIsPermanent(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{Success: true})

	f.creds.On("Resolve", mock.Anything, "store-1").Return(nil, credential.ErrNotFound)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	jr := f.svc.processJob(context.Background(), testJob())

	assert.Equal(t, StatusDeadLetter, jr.Status)
	assert.Equal(t, 1, jr.AttemptCount)
	assert.Equal(t, 0, f.adapter.calls)
}

func TestProcessJob_AlreadyCleanFieldsCompleteWithoutCall(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{Success: true})

	p := testProduct()
	p.DirtyFields = nil // a coalesced job already pushed everything
	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(p, nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	jr := f.svc.processJob(context.Background(), testJob())

	assert.Equal(t, StatusCompleted, jr.Status)
	assert.True(t, jr.NoOp)
	assert.Equal(t, 0, f.adapter.calls)
}

func TestProcessBatch_CountsOutcomes(t *testing.T) {
	f := newFixture(t,
		&platform.SyncResult{Success: true},
		&platform.SyncResult{Success: false, Error: "store temporarily unavailable (status 503)", Retryable: true},
	)

	jobs := []*SyncJob{testJob(), testJob()}
	jobs[1].ID = "job-2"

	f.repo.On("ReleaseStuck", mock.Anything, mock.Anything).Return(0, nil)
	f.repo.On("ClaimPending", mock.Anything, 25, f.now).Return(jobs, nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(testProduct(), nil).Twice()
	f.products.On("ApplyPushResult", mock.Anything, "prod-1", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Retried)
	assert.Zero(t, res.DeadLettered)
}

// memRepo is a mutex-guarded in-memory Repository for tests that need real
// claim transitions instead of scripted calls.
type memRepo struct {
	mu   sync.Mutex
	jobs map[string]*SyncJob
	seq  int
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: make(map[string]*SyncJob)}
}

func (r *memRepo) add(job *SyncJob) *SyncJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cp := *job
	cp.ID = fmt.Sprintf("job-%d", r.seq)
	r.jobs[cp.ID] = &cp
	return &cp
}

func (r *memRepo) Enqueue(ctx context.Context, job *SyncJob) (*SyncJob, error) {
	return r.add(job), nil
}

func (r *memRepo) ClaimPending(ctx context.Context, limit int, now time.Time) ([]*SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []*SyncJob
	for _, job := range r.jobs {
		if len(claimed) == limit {
			break
		}
		if job.Status == StatusPending && !job.NextAttemptAt.After(now) {
			job.Status = StatusProcessing
			job.UpdatedAt = now
			cp := *job
			claimed = append(claimed, &cp)
		}
	}
	return claimed, nil
}

func (r *memRepo) Update(ctx context.Context, job *SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}
	*stored = *job
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *memRepo) ListByStore(ctx context.Context, storeID string, statuses []string, limit int) ([]*SyncJob, error) {
	return nil, nil
}

func (r *memRepo) Stats(ctx context.Context, storeID string) (*QueueStats, error) {
	return &QueueStats{}, nil
}

func (r *memRepo) ReleaseStuck(ctx context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	released := 0
	for _, job := range r.jobs {
		if job.Status == StatusProcessing && job.UpdatedAt.Before(olderThan) {
			job.Status = StatusPending
			released++
		}
	}
	return released, nil
}

func (r *memRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// newMemFixture wires a service around a stateful repo; product and
// credential lookups always succeed.
func newMemFixture(t *testing.T, repo Repository, results ...*platform.SyncResult) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		products: new(MockProductRepository),
		creds:    new(MockCredentialService),
		adapter:  &stubAdapter{results: results},
		now:      time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}

	registry := platform.NewRegistry()
	registry.Register("woocommerce", func(c *credential.Credentials) platform.Adapter {
		return f.adapter
	})

	f.svc = NewService(repo, f.products, f.creds, registry, nil, Config{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		BackoffCap:  300 * time.Second,
	}, slog.Default())
	f.svc.now = func() time.Time { return f.now }
	f.svc.sleep = func(ctx context.Context, d time.Duration) {}

	f.creds.On("Resolve", mock.Anything, "store-1").Return(wooCreds(), nil)
	f.products.On("GetByID", mock.Anything, "prod-1").Return(testProduct(), nil)
	f.products.On("ApplyPushResult", mock.Anything, "prod-1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return f
}

func TestProcessBatch_ConcurrentWorkersClaimEachJobOnce(t *testing.T) {
	repo := newMemRepo()
	for i := 0; i < 60; i++ {
		job := testJob()
		job.Status = StatusPending
		repo.add(job)
	}

	f := newMemFixture(t, repo, &platform.SyncResult{Success: true})

	const workers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   int
		claimed = make(map[string]int)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.ProcessBatch(context.Background())
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			total += res.Processed
			for _, jr := range res.Results {
				claimed[jr.JobID]++
			}
		}()
	}
	wg.Wait()

	// Every job exactly once, no matter how the claims interleave.
	assert.Equal(t, 60, total)
	assert.Len(t, claimed, 60)
	for id, n := range claimed {
		assert.Equalf(t, 1, n, "job %s claimed by more than one worker", id)
	}
}

func TestProcessBatch_DeadLetterIsNeverReclaimed(t *testing.T) {
	repo := newMemRepo()
	job := testJob()
	job.Status = StatusPending
	seeded := repo.add(job)

	f := newMemFixture(t, repo, &platform.SyncResult{
		Success:   false,
		Error:     "duplicate SKU rejected by store",
		Retryable: false,
	})

	res, err := f.svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeadLettered)
	assert.Equal(t, 1, res.Failed)

	// Later passes, even past the stuck window, must not touch it.
	f.now = f.now.Add(24 * time.Hour)
	res, err = f.svc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Processed)

	stored, err := repo.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDeadLetter, stored.Status)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestEnqueue_AppliesDefaults(t *testing.T) {
	f := newFixture(t, &platform.SyncResult{Success: true})

	f.repo.On("Enqueue", mock.Anything, mock.MatchedBy(func(j *SyncJob) bool {
		return j.Status == StatusPending && j.MaxAttempts == 3 && j.NextAttemptAt.Equal(f.now)
	})).Return(testJob(), nil)

	_, err := f.svc.Enqueue(context.Background(), &SyncJob{
		StoreID:    "store-1",
		EntityType: EntityProduct,
		EntityID:   "prod-1",
		Fields:     []string{"title"},
	})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}
