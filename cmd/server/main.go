package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api"
	"storesync/internal/app/server/config"
	"storesync/internal/infrastructure/storage/postgres"
	"storesync/internal/utils/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	storage, err := postgres.New(cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	mux, services, err := api.New(storage, cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go queueTicker(ctx, cfg, services, log)
	go heartbeatTicker(ctx, cfg, services, log)
	go retentionTicker(ctx, cfg, services, log)

	server := &http.Server{
		Addr:    cfg.Server.RunAddress,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", cfg.Server.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// queueTicker drains due sync jobs on a fixed interval. The internal tick
// endpoint does the same thing for cron-driven deployments.
func queueTicker(ctx context.Context, cfg *config.Config, services *api.Services, log *slog.Logger) {
	if cfg.Queue.TickInterval <= 0 {
		return
	}
	t := time.NewTicker(cfg.Queue.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			result, err := services.Queue.ProcessBatch(ctx)
			if err != nil {
				log.Error("queue batch failed", "error", err)
				continue
			}
			if result.Processed > 0 {
				log.Info("queue batch done",
					"processed", result.Processed,
					"succeeded", result.Succeeded,
					"failed", result.Failed,
					"retried", result.Retried,
					"dead_lettered", result.DeadLettered,
				)
			}
		}
	}
}

func heartbeatTicker(ctx context.Context, cfg *config.Config, services *api.Services, log *slog.Logger) {
	if cfg.Heartbeat.TickInterval <= 0 {
		return
	}
	t := time.NewTicker(cfg.Heartbeat.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			result, err := services.Heartbeat.Tick(ctx)
			if err != nil {
				log.Error("heartbeat tick failed", "error", err)
				continue
			}
			if result.StoresChecked > 0 {
				log.Info("heartbeat tick done",
					"stores_checked", result.StoresChecked,
					"updated", result.Updated,
					"conflicts", result.Conflicts,
					"failures", result.Failures,
				)
			}
		}
	}
}

// retentionTicker prunes completed jobs and old audit entries once a day.
// Dead-lettered jobs are never pruned.
func retentionTicker(ctx context.Context, cfg *config.Config, services *api.Services, log *slog.Logger) {
	if cfg.Queue.RetentionDays <= 0 {
		return
	}
	retention := time.Duration(cfg.Queue.RetentionDays) * 24 * time.Hour

	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			removed, err := services.Queue.Cleanup(ctx, retention)
			if err != nil {
				log.Error("retention cleanup failed", "error", err)
				continue
			}
			log.Info("retention cleanup done", "removed", removed)
		}
	}
}
