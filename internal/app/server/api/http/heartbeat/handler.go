package heartbeat

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/heartbeat"
)

type Handler struct {
	service    heartbeat.Servicer
	creds      credential.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	scheduler  huma.Middlewares
}

func NewHandler(
	service heartbeat.Servicer,
	creds credential.Servicer,
	log *slog.Logger,
	mws huma.Middlewares,
	schedulerMWs huma.Middlewares,
) *Handler {
	return &Handler{
		service:    service,
		creds:      creds,
		log:        log,
		middleware: mws,
		scheduler:  schedulerMWs,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.checkOp(), h.check)
	huma.Register(api, h.resetOp(), h.reset)
	huma.Register(api, h.conflictsOp(), h.conflicts)
	huma.Register(api, h.tickOp(), h.tick)
}

func (h *Handler) status(ctx context.Context, input *storeInput) (*statusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.checkStore(ctx, input.StoreID, userID); err != nil {
		return nil, err
	}

	hb, err := h.service.Status(ctx, input.StoreID)
	if err != nil {
		if errors.Is(err, heartbeat.ErrNotFound) {
			return nil, huma.Error404NotFound("No heartbeat recorded for this store yet")
		}
		return nil, err
	}

	return &statusOutput{Body: hb}, nil
}

func (h *Handler) check(ctx context.Context, input *storeInput) (*checkOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.ForceCheck(ctx, userID, input.StoreID)
	if err != nil {
		return nil, mapCredentialErr(err)
	}

	return &checkOutput{Body: result}, nil
}

func (h *Handler) reset(ctx context.Context, input *storeInput) (*resetOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.Reset(ctx, userID, input.StoreID); err != nil {
		return nil, mapCredentialErr(err)
	}

	return &resetOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}

func (h *Handler) conflicts(ctx context.Context, input *conflictsInput) (*conflictsOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if err := h.checkStore(ctx, input.StoreID, userID); err != nil {
		return nil, err
	}

	entries, err := h.service.Conflicts(ctx, input.StoreID, input.Limit)
	if err != nil {
		return nil, err
	}

	return &conflictsOutput{Body: conflictsResponse{Conflicts: entries}}, nil
}

func (h *Handler) tick(ctx context.Context, _ *struct{}) (*tickOutput, error) {
	result, err := h.service.Tick(ctx)
	if err != nil {
		return nil, err
	}
	return &tickOutput{Body: result}, nil
}

func (h *Handler) checkStore(ctx context.Context, storeID string, userID int) error {
	return mapCredentialErr(h.creds.CheckOwnership(ctx, storeID, userID))
}

func mapCredentialErr(err error) error {
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
