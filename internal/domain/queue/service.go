package queue

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

// Config tunes the worker. Zero values are replaced with defaults.
type Config struct {
	BatchSize   int
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// CallDelay spaces outbound calls so a large queue does not hammer one
	// store into rate limiting.
	CallDelay time.Duration
	// StuckAfter is how long a job may sit in processing before it is
	// assumed orphaned by a crashed worker.
	StuckAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 25
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 300 * time.Second
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 10 * time.Minute
	}
	return c
}

// Servicer is the queue's public surface.
type Servicer interface {
	// Enqueue schedules a push for the given entity fields.
	Enqueue(ctx context.Context, job *SyncJob) (*SyncJob, error)

	// ProcessBatch claims due jobs and pushes them sequentially.
	ProcessBatch(ctx context.Context) (*BatchResult, error)

	Job(ctx context.Context, id string) (*SyncJob, error)
	ListJobs(ctx context.Context, storeID string, statuses []string, limit int) ([]*SyncJob, error)
	Stats(ctx context.Context, storeID string) (*QueueStats, error)

	// Cleanup prunes completed jobs and old audit entries past retention.
	Cleanup(ctx context.Context, retention time.Duration) (int, error)
}

type Service struct {
	repo     Repository
	products product.Repository
	creds    credential.Servicer
	registry *platform.Registry
	logs     LogRecorder
	cfg      Config
	log      *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewService(
	repo Repository,
	products product.Repository,
	creds credential.Servicer,
	registry *platform.Registry,
	logs LogRecorder,
	cfg Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		products: products,
		creds:    creds,
		registry: registry,
		logs:     logs,
		cfg:      cfg.withDefaults(),
		log:      log.With(slog.String("component", "sync_queue")),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Service) Enqueue(ctx context.Context, job *SyncJob) (*SyncJob, error) {
	if job.Status == "" {
		job.Status = StatusPending
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = s.cfg.MaxAttempts
	}
	now := s.now()
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = now
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	queued, err := s.repo.Enqueue(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	s.log.Info("job enqueued",
		"job_id", queued.ID,
		"store_id", queued.StoreID,
		"entity", queued.EntityType+"/"+queued.EntityID,
		"fields", queued.Fields,
	)
	return queued, nil
}

// ProcessBatch is the worker body: claim, push, transition. Jobs are handled
// sequentially with CallDelay spacing.
func (s *Service) ProcessBatch(ctx context.Context) (*BatchResult, error) {
	now := s.now()

	if released, err := s.repo.ReleaseStuck(ctx, now.Add(-s.cfg.StuckAfter)); err != nil {
		s.log.Warn("failed to release stuck jobs", "error", err)
	} else if released > 0 {
		s.log.Warn("released stuck jobs", "count", released)
	}

	jobs, err := s.repo.ClaimPending(ctx, s.cfg.BatchSize, now)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}

	result := &BatchResult{Processed: len(jobs)}
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			s.sleep(ctx, s.cfg.CallDelay)
		}

		jr := s.processJob(ctx, job)
		result.Results = append(result.Results, jr)
		switch jr.Status {
		case StatusCompleted:
			result.Succeeded++
		case StatusPending:
			result.Failed++
			result.Retried++
		case StatusDeadLetter:
			result.Failed++
			result.DeadLettered++
		}
	}

	if result.Processed > 0 {
		s.log.Info("batch processed",
			"processed", result.Processed,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"retried", result.Retried,
			"dead_lettered", result.DeadLettered,
		)
	}
	return result, nil
}

func (s *Service) processJob(ctx context.Context, job *SyncJob) JobResult {
	res := s.push(ctx, job)

	job.AttemptCount++
	now := s.now()
	job.UpdatedAt = now

	switch {
	case res.Success:
		job.Status = StatusCompleted
		job.LastError = ""
		job.CompletedAt = &now
	case !res.Retryable:
		job.Status = StatusDeadLetter
		job.LastError = permanentPrefix + res.Error
	case job.AttemptCount >= job.MaxAttempts:
		job.Status = StatusDeadLetter
		job.LastError = res.Error
	default:
		job.Status = StatusPending
		job.LastError = res.Error
		job.NextAttemptAt = now.Add(Backoff(s.cfg.BackoffBase, s.cfg.BackoffCap, job.AttemptCount))
	}

	if err := s.repo.Update(ctx, job); err != nil {
		s.log.Error("failed to persist job transition", "job_id", job.ID, "error", err)
	}
	s.record(ctx, job, res)

	if job.Status == StatusDeadLetter {
		s.log.Warn("job dead lettered",
			"job_id", job.ID,
			"store_id", job.StoreID,
			"attempts", job.AttemptCount,
			"error", job.LastError,
		)
	}

	return JobResult{
		JobID:        job.ID,
		EntityType:   job.EntityType,
		EntityID:     job.EntityID,
		Status:       job.Status,
		AttemptCount: job.AttemptCount,
		Error:        job.LastError,
		NoOp:         res.NoOp,
	}
}

// push performs the outbound call for one job and normalizes every failure
// mode into a SyncResult.
func (s *Service) push(ctx context.Context, job *SyncJob) *platform.SyncResult {
	creds, err := s.creds.Resolve(ctx, job.StoreID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) || errors.Is(err, credential.ErrUnsupportedPlatform) || errors.Is(err, credential.ErrInvalidBlob) {
			return &platform.SyncResult{Error: "store connection is missing or invalid", Retryable: false}
		}
		return &platform.SyncResult{Error: "failed to load store connection", Retryable: true}
	}

	adapter, err := s.registry.Resolve(creds)
	if err != nil {
		return &platform.SyncResult{Error: "platform is not supported", Retryable: false}
	}

	switch job.EntityType {
	case EntityArticle:
		return s.pushArticle(ctx, adapter, job)
	default:
		return s.pushProduct(ctx, adapter, job)
	}
}

func (s *Service) pushProduct(ctx context.Context, adapter platform.Adapter, job *SyncJob) *platform.SyncResult {
	p, err := s.products.GetByID(ctx, job.EntityID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return &platform.SyncResult{Error: "product no longer exists", Retryable: false}
		}
		return &platform.SyncResult{Error: "failed to load product", Retryable: true}
	}

	fields := intersect(job.Fields, p.DirtyFields)
	if len(fields) == 0 {
		// Everything this job covers was already pushed by a coalesced job.
		return &platform.SyncResult{Success: true, NoOp: true}
	}

	res, err := adapter.UpdateProduct(ctx, p.PlatformProductID, p.WorkingContent, fields)
	if err != nil {
		return &platform.SyncResult{Error: "store request failed", Retryable: true}
	}
	if !res.Success {
		return res
	}

	var snapshot product.Content
	if res.UpdatedSnapshot != nil {
		snapshot = product.Content(res.UpdatedSnapshot)
	}
	if err := s.products.ApplyPushResult(ctx, p.ID, fields, snapshot, s.now()); err != nil {
		// The store accepted the update but the mirror did not; retrying the
		// push is harmless because it is field-idempotent.
		return &platform.SyncResult{Error: "failed to persist push result", Retryable: true}
	}
	return res
}

func (s *Service) pushArticle(ctx context.Context, adapter platform.Adapter, job *SyncJob) *platform.SyncResult {
	a, err := s.products.GetArticleByID(ctx, job.EntityID)
	if err != nil {
		if errors.Is(err, product.ErrArticleNotFound) {
			return &platform.SyncResult{Error: "article no longer exists", Retryable: false}
		}
		return &platform.SyncResult{Error: "failed to load article", Retryable: true}
	}

	fields := intersect(job.Fields, a.DirtyFields)
	if len(fields) == 0 {
		return &platform.SyncResult{Success: true, NoOp: true}
	}

	res, err := adapter.UpdateArticle(ctx, a.PlatformArticleID, a.WorkingContent, fields)
	if err != nil {
		return &platform.SyncResult{Error: "store request failed", Retryable: true}
	}
	if !res.Success {
		return res
	}

	var snapshot product.Content
	if res.UpdatedSnapshot != nil {
		snapshot = product.Content(res.UpdatedSnapshot)
	}
	if err := s.products.ApplyArticlePushResult(ctx, a.ID, fields, snapshot, s.now()); err != nil {
		return &platform.SyncResult{Error: "failed to persist push result", Retryable: true}
	}
	return res
}

func (s *Service) record(ctx context.Context, job *SyncJob, res *platform.SyncResult) {
	if s.logs == nil {
		return
	}
	action := "push"
	if job.Status == StatusDeadLetter {
		action = "dead_letter"
	} else if job.Status == StatusPending {
		action = "retry"
	}
	entry := &LogEntry{
		StoreID:    job.StoreID,
		EntityType: job.EntityType,
		EntityID:   job.EntityID,
		Action:     action,
		Status:     job.Status,
		Message:    job.LastError,
		CreatedAt:  s.now(),
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record sync log entry", "error", err)
	}
}

func (s *Service) Job(ctx context.Context, id string) (*SyncJob, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListJobs(ctx context.Context, storeID string, statuses []string, limit int) ([]*SyncJob, error) {
	return s.repo.ListByStore(ctx, storeID, statuses, limit)
}

func (s *Service) Stats(ctx context.Context, storeID string) (*QueueStats, error) {
	return s.repo.Stats(ctx, storeID)
}

func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	deleted, err := s.repo.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune completed jobs: %w", err)
	}
	if s.logs != nil {
		if n, err := s.logs.DeleteBefore(ctx, cutoff); err != nil {
			s.log.Warn("failed to prune sync logs", "error", err)
		} else {
			deleted += n
		}
	}
	if deleted > 0 {
		s.log.Info("retention cleanup done", "deleted", deleted)
	}
	return deleted, nil
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, f := range b {
		set[f] = struct{}{}
	}
	var out []string
	for _, f := range a {
		if _, ok := set[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
