package queue

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/queue"
)

type Handler struct {
	service    queue.Servicer
	logs       queue.LogRecorder
	creds      credential.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	scheduler  huma.Middlewares
}

func NewHandler(
	service queue.Servicer,
	logs queue.LogRecorder,
	creds credential.Servicer,
	log *slog.Logger,
	mws huma.Middlewares,
	schedulerMWs huma.Middlewares,
) *Handler {
	return &Handler{
		service:    service,
		logs:       logs,
		creds:      creds,
		log:        log,
		middleware: mws,
		scheduler:  schedulerMWs,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.statsOp(), h.stats)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.logsOp(), h.listLogs)
	huma.Register(api, h.tickOp(), h.tick)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.checkStore(ctx, input.StoreID, userID); err != nil {
		return nil, err
	}

	var statuses []string
	if input.Status != "" {
		statuses = []string{input.Status}
	}

	jobs, err := h.service.ListJobs(ctx, input.StoreID, statuses, input.Limit)
	if err != nil {
		return nil, err
	}

	return &listOutput{Body: listResponse{Jobs: jobs}}, nil
}

func (h *Handler) stats(ctx context.Context, input *statsInput) (*statsOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.checkStore(ctx, input.StoreID, userID); err != nil {
		return nil, err
	}

	stats, err := h.service.Stats(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}

	return &statsOutput{Body: stats}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	job, err := h.service.Job(ctx, input.ID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			return nil, huma.Error404NotFound("Job not found")
		}
		return nil, err
	}
	if job.UserID != userID {
		// Hide other users' jobs instead of admitting they exist.
		return nil, huma.Error404NotFound("Job not found")
	}

	return &findOutput{Body: job}, nil
}

func (h *Handler) listLogs(ctx context.Context, input *logsInput) (*logsOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.checkStore(ctx, input.StoreID, userID); err != nil {
		return nil, err
	}

	entries, err := h.logs.ListByStore(ctx, input.StoreID, input.Limit)
	if err != nil {
		return nil, err
	}

	return &logsOutput{Body: logsResponse{Entries: entries}}, nil
}

func (h *Handler) tick(ctx context.Context, _ *struct{}) (*tickOutput, error) {
	result, err := h.service.ProcessBatch(ctx)
	if err != nil {
		return nil, err
	}
	return &tickOutput{Body: result}, nil
}

func (h *Handler) checkStore(ctx context.Context, storeID string, userID int) error {
	err := h.creds.CheckOwnership(ctx, storeID, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, credential.ErrNotFound):
		return huma.Error404NotFound("Store not found")
	case errors.Is(err, credential.ErrNotOwner):
		return huma.Error403Forbidden("Store belongs to another user")
	default:
		return err
	}
}
