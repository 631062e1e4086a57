package importapi

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/importer"
)

type Handler struct {
	service    importer.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service importer.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.startOp(), h.start)
	huma.Register(api, h.runOp(), h.run)
	huma.Register(api, h.statusOp(), h.status)
}

func (h *Handler) start(ctx context.Context, input *startInput) (*startOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	job, err := h.service.Start(ctx, userID, input.StoreID, input.Body.ForceRestart)
	if err != nil {
		return nil, mapImportErr(err)
	}

	return &startOutput{Body: job}, nil
}

func (h *Handler) run(ctx context.Context, input *runInput) (*runOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.Run(ctx, userID, input.JobID)
	if err != nil {
		return nil, mapImportErr(err)
	}

	return &runOutput{Body: result}, nil
}

func (h *Handler) status(ctx context.Context, input *statusInput) (*statusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	status, err := h.service.Progress(ctx, input.JobID)
	if err != nil {
		return nil, mapImportErr(err)
	}
	if status.Job.UserID != userID {
		return nil, huma.Error404NotFound("Import job not found")
	}

	return &statusOutput{Body: status}, nil
}

func mapImportErr(err error) error {
	switch {
	case errors.Is(err, importer.ErrJobNotFound):
		return huma.Error404NotFound("Import job not found")
	case errors.Is(err, importer.ErrNotResumable):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, credential.ErrNotFound):
		return huma.Error404NotFound("Store not found")
	case errors.Is(err, credential.ErrNotOwner):
		return huma.Error403Forbidden("Store belongs to another user")
	default:
		return err
	}
}
