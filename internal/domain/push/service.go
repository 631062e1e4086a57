package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
	"storesync/internal/domain/product"
	"storesync/internal/domain/queue"
)

const (
	reasonRemoteNewer = "Remote data is newer than local data"
	reasonClean       = "No pending changes"
	reasonNotFound    = "Not found"
)

// Config tunes request validation and conflict tolerance.
type Config struct {
	// MaxIDs caps how many entities one request may name.
	MaxIDs int
	// ConflictWindow is the tolerance when comparing local edit time with
	// the remote modification time. A remote timestamp within the window
	// ahead of the local edit still pushes; clock skew between the store
	// and this service would otherwise block legitimate pushes.
	ConflictWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIDs <= 0 {
		c.MaxIDs = 20
	}
	if c.ConflictWindow <= 0 {
		c.ConflictWindow = 4 * time.Hour
	}
	return c
}

// Servicer validates push requests and feeds the sync queue.
type Servicer interface {
	Push(ctx context.Context, userID int, req *Request) (*Result, error)
}

type Service struct {
	products product.Repository
	creds    credential.Servicer
	jobs     queue.Servicer
	limiter  RateLimiter
	cfg      Config
	log      *slog.Logger

	now func() time.Time
}

func NewService(
	products product.Repository,
	creds credential.Servicer,
	jobs queue.Servicer,
	limiter RateLimiter,
	cfg Config,
	log *slog.Logger,
) *Service {
	return &Service{
		products: products,
		creds:    creds,
		jobs:     jobs,
		limiter:  limiter,
		cfg:      cfg.withDefaults(),
		log:      log.With(slog.String("component", "push")),
		now:      time.Now,
	}
}

func (s *Service) Push(ctx context.Context, userID int, req *Request) (*Result, error) {
	total := len(req.ProductIDs) + len(req.ArticleIDs)
	if total == 0 {
		return nil, ErrNoItems
	}
	if total > s.cfg.MaxIDs {
		return nil, fmt.Errorf("%w: %d given, %d allowed", ErrTooManyItems, total, s.cfg.MaxIDs)
	}

	if err := s.creds.CheckOwnership(ctx, req.StoreID, userID); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	res := &Result{}
	for _, id := range req.ProductIDs {
		s.pushProduct(ctx, userID, req, id, res)
	}
	for _, id := range req.ArticleIDs {
		s.pushArticle(ctx, userID, req, id, res)
	}

	s.log.Info("push request handled",
		"user_id", userID,
		"store_id", req.StoreID,
		"queued", len(res.Queued),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

func (s *Service) pushProduct(ctx context.Context, userID int, req *Request, id string, res *Result) {
	skip := func(reason string) {
		res.Skipped = append(res.Skipped, SkippedItem{EntityType: queue.EntityProduct, EntityID: id, Reason: reason})
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			skip(reasonNotFound)
			return
		}
		s.log.Error("failed to load product for push", "product_id", id, "error", err)
		skip("Internal error")
		return
	}
	if p.StoreID != req.StoreID {
		skip(reasonNotFound)
		return
	}
	if len(p.DirtyFields) == 0 {
		skip(reasonClean)
		return
	}
	if !req.Force && s.remoteNewer(p.WorkingUpdatedAt, p.StoreLastModifiedAt) {
		skip(reasonRemoteNewer)
		return
	}

	job, err := s.jobs.Enqueue(ctx, &queue.SyncJob{
		UserID:     userID,
		StoreID:    req.StoreID,
		EntityType: queue.EntityProduct,
		EntityID:   p.ID,
		Fields:     p.DirtyFields,
	})
	if err != nil {
		s.log.Error("failed to enqueue product push", "product_id", id, "error", err)
		skip("Internal error")
		return
	}
	res.Queued = append(res.Queued, QueuedItem{
		EntityType: queue.EntityProduct,
		EntityID:   p.ID,
		JobID:      job.ID,
		Fields:     job.Fields,
	})
}

func (s *Service) pushArticle(ctx context.Context, userID int, req *Request, id string, res *Result) {
	skip := func(reason string) {
		res.Skipped = append(res.Skipped, SkippedItem{EntityType: queue.EntityArticle, EntityID: id, Reason: reason})
	}

	a, err := s.products.GetArticleByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrArticleNotFound) {
			skip(reasonNotFound)
			return
		}
		s.log.Error("failed to load article for push", "article_id", id, "error", err)
		skip("Internal error")
		return
	}
	if a.StoreID != req.StoreID {
		skip(reasonNotFound)
		return
	}
	if len(a.DirtyFields) == 0 {
		skip(reasonClean)
		return
	}
	if !req.Force && s.remoteNewer(a.WorkingUpdatedAt, a.StoreLastModifiedAt) {
		skip(reasonRemoteNewer)
		return
	}

	job, err := s.jobs.Enqueue(ctx, &queue.SyncJob{
		UserID:     userID,
		StoreID:    req.StoreID,
		EntityType: queue.EntityArticle,
		EntityID:   a.ID,
		Fields:     a.DirtyFields,
	})
	if err != nil {
		s.log.Error("failed to enqueue article push", "article_id", id, "error", err)
		skip("Internal error")
		return
	}
	res.Queued = append(res.Queued, QueuedItem{
		EntityType: queue.EntityArticle,
		EntityID:   a.ID,
		JobID:      job.ID,
		Fields:     job.Fields,
	})
}

// remoteNewer reports whether the remote copy changed after the local edit,
// beyond the tolerance window. An unknown remote timestamp never blocks.
func (s *Service) remoteNewer(localEdited, remoteModified time.Time) bool {
	if remoteModified.IsZero() {
		return false
	}
	return remoteModified.After(localEdited.Add(s.cfg.ConflictWindow))
}
