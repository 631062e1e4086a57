package store

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/credential"
	"storesync/internal/platform"
)

type Handler struct {
	service    credential.Servicer
	registry   *platform.Registry
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service credential.Servicer, registry *platform.Registry, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		registry:   registry,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.connectOp(), h.connect)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.deleteOp(), h.delete)
	huma.Register(api, h.platformsOp(), h.platforms)
}

func (h *Handler) connect(ctx context.Context, input *connectInput) (*connectOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	conn := &credential.StoreConnection{
		UserID:    userID,
		StoreName: input.Body.StoreName,
		Platform:  input.Body.Platform,
	}
	creds := &credential.Credentials{
		Platform:       input.Body.Platform,
		APIURL:         input.Body.APIURL,
		ConsumerKey:    input.Body.ConsumerKey,
		ConsumerSecret: input.Body.ConsumerSecret,
		AccessToken:    input.Body.AccessToken,
		BlogURL:        input.Body.BlogURL,
		BlogUser:       input.Body.BlogUser,
		BlogPassword:   input.Body.BlogPassword,
	}

	if err := h.service.SaveConnection(ctx, conn, creds); err != nil {
		if errors.Is(err, credential.ErrInvalidBlob) || errors.Is(err, credential.ErrUnsupportedPlatform) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, err
	}

	return &connectOutput{
		Body: connectResponse{
			ID:     conn.ID,
			Status: "Ok",
		},
	}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	stores, err := h.service.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &listOutput{
		Body: listResponse{Stores: stores},
	}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.CheckOwnership(ctx, input.ID, userID); err != nil {
		return nil, mapCredentialErr(err)
	}

	conn, err := h.service.Connection(ctx, input.ID)
	if err != nil {
		return nil, mapCredentialErr(err)
	}

	return &findOutput{Body: conn}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*deleteOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.DeleteConnection(ctx, input.ID, userID); err != nil {
		return nil, mapCredentialErr(err)
	}

	return &deleteOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}

func (h *Handler) platforms(ctx context.Context, _ *struct{}) (*platformsOutput, error) {
	return &platformsOutput{
		Body: platformsResponse{Platforms: h.registry.Platforms()},
	}, nil
}

func mapCredentialErr(err error) error {
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return huma.Error404NotFound("Store not found")
	case errors.Is(err, credential.ErrNotOwner):
		return huma.Error403Forbidden("Store belongs to another user")
	default:
		return err
	}
}
