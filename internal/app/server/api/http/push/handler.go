package push

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/push"
)

type Handler struct {
	service    push.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service push.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pushOp(), h.push)
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.Push(ctx, userID, &push.Request{
		StoreID:    input.StoreID,
		ProductIDs: input.Body.ProductIDs,
		ArticleIDs: input.Body.ArticleIDs,
		Force:      input.Body.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, push.ErrNoItems), errors.Is(err, push.ErrTooManyItems):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		case errors.Is(err, push.ErrRateLimited):
			return nil, huma.Error429TooManyRequests("Push rate limit reached, try again in a minute")
		case errors.Is(err, credential.ErrNotFound):
			return nil, huma.Error404NotFound("Store not found")
		case errors.Is(err, credential.ErrNotOwner):
			return nil, huma.Error403Forbidden("Store belongs to another user")
		default:
			return nil, err
		}
	}

	return &pushOutput{Body: result}, nil
}
