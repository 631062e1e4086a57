package client

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/app/client/config"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/heartbeat"
	"storesync/internal/domain/importer"
	"storesync/internal/domain/push"
	"storesync/internal/domain/queue"
)

// App is the CLI application: an authenticated HTTP client plus a local
// cache for offline listings.
type App struct {
	config *config.Config
	log    *slog.Logger
	http   *httpClient
	cache  *SQLiteStorage
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	httpCl := NewHTTPClient(cfg, log)

	cache, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: cfg,
		log:    log,
		http:   httpCl,
		cache:  cache,
	}

	if token, err := app.loadToken(); err == nil && token != "" {
		httpCl.SetToken(token)
	}

	return app, nil
}

func (a *App) Close() error {
	return a.cache.Close()
}

// SaveToken persists the API token with owner-only permissions.
func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	a.http.SetToken(token)
	return nil
}

func (a *App) loadToken() (string, error) {
	data, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *App) HasToken() bool {
	token, err := a.loadToken()
	return err == nil && token != ""
}

func (a *App) CheckConnection(ctx context.Context) error {
	return a.http.HealthCheck(ctx)
}

func (a *App) ConnectStore(ctx context.Context, req ConnectStoreRequest) (string, error) {
	return a.http.ConnectStore(ctx, req)
}

// ListStores fetches the store list, falling back to the local cache when
// the server is unreachable.
func (a *App) ListStores(ctx context.Context) ([]*credential.StoreConnection, bool, error) {
	stores, err := a.http.ListStores(ctx)
	if err != nil {
		cached, cacheErr := a.cache.ListStores()
		if cacheErr != nil || len(cached) == 0 {
			return nil, false, err
		}
		a.log.Debug("serving stores from cache", "error", err)
		return cached, true, nil
	}

	if err := a.cache.SaveStores(stores); err != nil {
		a.log.Debug("failed to cache stores", "error", err)
	}
	return stores, false, nil
}

func (a *App) DeleteStore(ctx context.Context, storeID string) error {
	return a.http.DeleteStore(ctx, storeID)
}

func (a *App) Push(ctx context.Context, storeID string, productIDs, articleIDs []string, force bool) (*push.Result, error) {
	return a.http.Push(ctx, storeID, pushRequest{
		ProductIDs: productIDs,
		ArticleIDs: articleIDs,
		Force:      force,
	})
}

// Import starts (or resumes) an import and drives chunk processing to
// completion, re-invoking the run endpoint while the server reports more
// work. Progress is reported through onProgress after every pass.
func (a *App) Import(ctx context.Context, storeID string, forceRestart bool, onProgress func(*importer.RunResult)) (*importer.SyncImportJob, error) {
	job, err := a.http.StartImport(ctx, storeID, forceRestart)
	if err != nil {
		return nil, err
	}
	_ = a.cache.SaveImportState(storeID, job.ID, string(job.Status))

	if !job.Chunked {
		return job, nil
	}

	for {
		result, err := a.http.RunImport(ctx, job.ID)
		if err != nil {
			return job, err
		}
		if onProgress != nil {
			onProgress(result)
		}
		_ = a.cache.SaveImportState(storeID, job.ID, result.Status)

		if !result.CanResume {
			break
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return job, nil
}

func (a *App) ImportStatus(ctx context.Context, jobID string) (*importer.Status, error) {
	return a.http.ImportStatus(ctx, jobID)
}

func (a *App) LastImportJob(storeID string) (string, string) {
	jobID, status, err := a.cache.ImportState(storeID)
	if err != nil {
		return "", ""
	}
	return jobID, status
}

func (a *App) QueueStats(ctx context.Context, storeID string) (*queue.QueueStats, error) {
	return a.http.QueueStats(ctx, storeID)
}

func (a *App) ListJobs(ctx context.Context, storeID, status string, limit int) ([]*queue.SyncJob, error) {
	return a.http.ListJobs(ctx, storeID, status, limit)
}

func (a *App) Heartbeat(ctx context.Context, storeID string) (*heartbeat.StoreHeartbeat, error) {
	return a.http.Heartbeat(ctx, storeID)
}

func (a *App) ForceHeartbeatCheck(ctx context.Context, storeID string) (*heartbeat.CheckResult, error) {
	return a.http.ForceHeartbeatCheck(ctx, storeID)
}

func (a *App) ResetHeartbeat(ctx context.Context, storeID string) error {
	return a.http.ResetHeartbeat(ctx, storeID)
}
