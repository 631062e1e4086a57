package token

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/session"
)

type Handler struct {
	service    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	scheduler  huma.Middlewares
}

func NewHandler(service session.Servicer, log *slog.Logger, mws huma.Middlewares, schedulerMWs huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
		scheduler:  schedulerMWs,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.issueOp(), h.issue)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.revokeOp(), h.revoke)
}

func (h *Handler) issue(ctx context.Context, input *issueInput) (*issueOutput, error) {
	ttl := time.Duration(input.Body.TTLHours) * time.Hour

	raw, token, err := h.service.Issue(ctx, input.Body.UserID, input.Body.Name, ttl)
	if err != nil {
		return nil, err
	}

	return &issueOutput{
		Body: issueResponse{
			Token: raw,
			Info:  token,
		},
	}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	tokens, err := h.service.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &listOutput{Body: listResponse{Tokens: tokens}}, nil
}

func (h *Handler) revoke(ctx context.Context, input *revokeInput) (*revokeOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.Revoke(ctx, input.ID, userID); err != nil {
		if errors.Is(err, session.ErrTokenNotFound) {
			return nil, huma.Error404NotFound("Token not found")
		}
		return nil, err
	}

	return &revokeOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}
