package heartbeat

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

// Config tunes the reconciler.
type Config struct {
	// Interval is the minimum spacing between checks of the same store.
	Interval time.Duration
	// FailureCeiling suspends a store after this many consecutive failed
	// checks until an operator resets it.
	FailureCeiling int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.FailureCeiling <= 0 {
		c.FailureCeiling = 5
	}
	return c
}

// CheckResult summarizes one store check.
type CheckResult struct {
	StoreID   string `json:"store_id"`
	Updated   int    `json:"updated"`
	Conflicts int    `json:"conflicts"`
	Skipped   int    `json:"skipped"`
	Failed    bool   `json:"failed"`
}

// TickResult summarizes one reconciliation pass over all due stores.
type TickResult struct {
	StoresChecked int           `json:"stores_checked"`
	Updated       int           `json:"updated"`
	Conflicts     int           `json:"conflicts"`
	Failures      int           `json:"failures"`
	Results       []CheckResult `json:"results"`
}

// Servicer reconciles local mirrors with remote store changes. The store is
// the source of truth: remote edits overwrite local ones, with the local
// state preserved in the conflict log first.
type Servicer interface {
	// Tick checks every due store once.
	Tick(ctx context.Context) (*TickResult, error)

	// ForceCheck runs one store's check immediately, ignoring the interval
	// and failure ceiling.
	ForceCheck(ctx context.Context, userID int, storeID string) (*CheckResult, error)

	// Reset clears a store's failure count so checks resume.
	Reset(ctx context.Context, userID int, storeID string) error

	Status(ctx context.Context, storeID string) (*StoreHeartbeat, error)
	Conflicts(ctx context.Context, storeID string, limit int) ([]*ConflictLogEntry, error)
}

type Service struct {
	repo     Repository
	products product.Repository
	creds    credential.Servicer
	registry *platform.Registry
	cfg      Config
	log      *slog.Logger

	now func() time.Time
}

func NewService(
	repo Repository,
	products product.Repository,
	creds credential.Servicer,
	registry *platform.Registry,
	cfg Config,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		products: products,
		creds:    creds,
		registry: registry,
		cfg:      cfg.withDefaults(),
		log:      log.With(slog.String("component", "heartbeat")),
		now:      time.Now,
	}
}

func (s *Service) Tick(ctx context.Context) (*TickResult, error) {
	cutoff := s.now().Add(-s.cfg.Interval)
	due, err := s.repo.ListDue(ctx, cutoff, s.cfg.FailureCeiling)
	if err != nil {
		return nil, fmt.Errorf("list due stores: %w", err)
	}

	result := &TickResult{}
	for _, hb := range due {
		if ctx.Err() != nil {
			break
		}
		cr := s.checkStore(ctx, hb)
		result.StoresChecked++
		result.Updated += cr.Updated
		result.Conflicts += cr.Conflicts
		if cr.Failed {
			result.Failures++
		}
		result.Results = append(result.Results, cr)
	}

	if result.StoresChecked > 0 {
		s.log.Info("heartbeat tick done",
			"stores", result.StoresChecked,
			"updated", result.Updated,
			"conflicts", result.Conflicts,
			"failures", result.Failures,
		)
	}
	return result, nil
}

func (s *Service) ForceCheck(ctx context.Context, userID int, storeID string) (*CheckResult, error) {
	if err := s.creds.CheckOwnership(ctx, storeID, userID); err != nil {
		return nil, err
	}
	hb, err := s.repo.Get(ctx, storeID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		hb = &StoreHeartbeat{StoreID: storeID}
	}
	cr := s.checkStore(ctx, hb)
	return &cr, nil
}

// checkStore fetches remote changes since the checkpoint and applies them.
func (s *Service) checkStore(ctx context.Context, hb *StoreHeartbeat) CheckResult {
	cr := CheckResult{StoreID: hb.StoreID}
	now := s.now()

	items, err := s.fetchChanges(ctx, hb)
	if err != nil {
		hb.ConsecutiveFailures++
		hb.LastError = err.Error()
		hb.LastCheckAt = now
		hb.UpdatedAt = now
		cr.Failed = true
		if hb.ConsecutiveFailures >= s.cfg.FailureCeiling {
			s.log.Warn("store suspended after repeated heartbeat failures",
				"store_id", hb.StoreID,
				"failures", hb.ConsecutiveFailures,
			)
		} else {
			s.log.Warn("heartbeat check failed",
				"store_id", hb.StoreID,
				"failures", hb.ConsecutiveFailures,
				"error", err,
			)
		}
		s.persist(ctx, hb)
		return cr
	}

	// The checkpoint is the max dateModified across all fetched items, so
	// items the mirror does not know still move the cursor forward. Only an
	// apply error pins it, so the failed item is refetched next check.
	checkpoint := hb.Checkpoint
	pinned := false
	for _, item := range items {
		applied, conflicted, err := s.applyRemoteItem(ctx, hb.StoreID, item)
		if err != nil {
			s.log.Warn("failed to apply remote change",
				"store_id", hb.StoreID,
				"external_id", item.ExternalID,
				"error", err,
			)
			cr.Skipped++
			pinned = true
			continue
		}
		if !applied {
			cr.Skipped++
		} else {
			cr.Updated++
			if conflicted {
				cr.Conflicts++
			}
		}
		if !pinned && item.DateModified.After(checkpoint) {
			checkpoint = item.DateModified
		}
	}

	hb.Checkpoint = checkpoint
	hb.ConsecutiveFailures = 0
	hb.LastError = ""
	hb.LastCheckAt = now
	hb.UpdatedAt = now
	s.persist(ctx, hb)
	return cr
}

func (s *Service) fetchChanges(ctx context.Context, hb *StoreHeartbeat) ([]*platform.RemoteItem, error) {
	creds, err := s.creds.Resolve(ctx, hb.StoreID)
	if err != nil {
		return nil, fmt.Errorf("resolve store connection: %w", err)
	}
	adapter, err := s.registry.Resolve(creds)
	if err != nil {
		return nil, err
	}
	return adapter.FetchProductsModifiedSince(ctx, hb.Checkpoint)
}

// applyRemoteItem overwrites the local mirror with remote content. Products
// the mirror has never seen are skipped; the heartbeat reconciles, it does
// not import. When local edits would be lost, the conflict entry must land
// before the overwrite, so a failed conflict write skips the item.
func (s *Service) applyRemoteItem(ctx context.Context, storeID string, item *platform.RemoteItem) (applied, conflicted bool, err error) {
	p, err := s.products.GetByPlatformID(ctx, storeID, item.ExternalID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}

	remote := product.Content(item.Fields)

	if len(p.DirtyFields) > 0 {
		entry := &ConflictLogEntry{
			StoreID:       storeID,
			ProductID:     p.ID,
			ExternalID:    item.ExternalID,
			DirtyFields:   p.DirtyFields,
			LocalContent:  p.WorkingContent,
			RemoteContent: remote,
			DetectedAt:    s.now(),
		}
		if err := s.repo.RecordConflict(ctx, entry); err != nil {
			return false, false, fmt.Errorf("record conflict: %w", err)
		}
		conflicted = true
		s.log.Info("remote change overwrote local edits",
			"store_id", storeID,
			"product_id", p.ID,
			"dirty_fields", p.DirtyFields,
		)
	}

	if err := s.products.ApplyRemote(ctx, p.ID, remote, item.DateModified); err != nil {
		return false, conflicted, err
	}
	return true, conflicted, nil
}

func (s *Service) persist(ctx context.Context, hb *StoreHeartbeat) {
	if err := s.repo.Upsert(ctx, hb); err != nil {
		s.log.Error("failed to persist heartbeat", "store_id", hb.StoreID, "error", err)
	}
}

func (s *Service) Reset(ctx context.Context, userID int, storeID string) error {
	if err := s.creds.CheckOwnership(ctx, storeID, userID); err != nil {
		return err
	}
	hb, err := s.repo.Get(ctx, storeID)
	if err != nil {
		return err
	}
	hb.ConsecutiveFailures = 0
	hb.LastError = ""
	hb.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, hb); err != nil {
		return fmt.Errorf("reset heartbeat: %w", err)
	}
	s.log.Info("heartbeat reset", "store_id", storeID)
	return nil
}

func (s *Service) Status(ctx context.Context, storeID string) (*StoreHeartbeat, error) {
	return s.repo.Get(ctx, storeID)
}

func (s *Service) Conflicts(ctx context.Context, storeID string, limit int) ([]*ConflictLogEntry, error) {
	return s.repo.ListConflicts(ctx, storeID, limit)
}
