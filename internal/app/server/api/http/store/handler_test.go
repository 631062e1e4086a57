package store

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/domain/credential"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Resolve(ctx context.Context, storeID string) (*credential.Credentials, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.Credentials), args.Error(1)
}

func (m *MockService) Connection(ctx context.Context, storeID string) (*credential.StoreConnection, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.StoreConnection), args.Error(1)
}

func (m *MockService) ListForUser(ctx context.Context, userID int) ([]*credential.StoreConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credential.StoreConnection), args.Error(1)
}

func (m *MockService) SaveConnection(ctx context.Context, conn *credential.StoreConnection, creds *credential.Credentials) error {
	args := m.Called(ctx, conn, creds)
	return args.Error(0)
}

func (m *MockService) DeleteConnection(ctx context.Context, storeID string, userID int) error {
	args := m.Called(ctx, storeID, userID)
	return args.Error(0)
}

func (m *MockService) CheckOwnership(ctx context.Context, storeID string, userID int) error {
	args := m.Called(ctx, storeID, userID)
	return args.Error(0)
}

func TestHandler_connect(t *testing.T) {
	userID := 42
	authCtx := auth.WithUserID(context.Background(), userID)

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, slog.Default(), huma.Middlewares{})

		input := &connectInput{}
		input.Body.StoreName = "My Shop"
		input.Body.Platform = "woocommerce"
		input.Body.APIURL = "https://shop.example.com"
		input.Body.ConsumerKey = "ck_test"
		input.Body.ConsumerSecret = "cs_test"

		svc.On("SaveConnection",
			mock.Anything,
			mock.MatchedBy(func(conn *credential.StoreConnection) bool {
				return conn.UserID == userID && conn.Platform == "woocommerce"
			}),
			mock.MatchedBy(func(creds *credential.Credentials) bool {
				return creds.APIURL == "https://shop.example.com" && creds.ConsumerKey == "ck_test"
			}),
		).Return(nil)

		resp, err := h.connect(authCtx, input)

		assert.NoError(t, err)
		assert.Equal(t, "Ok", resp.Body.Status)
		svc.AssertExpectations(t)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, slog.Default(), huma.Middlewares{})

		input := &connectInput{}
		input.Body.Platform = "woocommerce"

		svc.On("SaveConnection", mock.Anything, mock.Anything, mock.Anything).
			Return(credential.ErrInvalidBlob)

		resp, err := h.connect(authCtx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
		var statusErr huma.StatusError
		assert.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 422, statusErr.GetStatus())
	})

	t.Run("Unauthorized", func(t *testing.T) {
		h := NewHandler(nil, nil, slog.Default(), huma.Middlewares{})

		resp, err := h.connect(context.Background(), &connectInput{})

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestHandler_delete(t *testing.T) {
	userID := 42
	authCtx := auth.WithUserID(context.Background(), userID)

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, slog.Default(), huma.Middlewares{})

		svc.On("DeleteConnection", mock.Anything, "store-1", userID).Return(nil)

		resp, err := h.delete(authCtx, &deleteInput{ID: "store-1"})

		assert.NoError(t, err)
		assert.Equal(t, "Ok", resp.Body.Status)
	})

	t.Run("NotOwner", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, slog.Default(), huma.Middlewares{})

		svc.On("DeleteConnection", mock.Anything, "store-1", userID).
			Return(credential.ErrNotOwner)

		resp, err := h.delete(authCtx, &deleteInput{ID: "store-1"})

		assert.Nil(t, resp)
		var statusErr huma.StatusError
		assert.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 403, statusErr.GetStatus())
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, slog.Default(), huma.Middlewares{})

		svc.On("DeleteConnection", mock.Anything, "missing", userID).
			Return(credential.ErrNotFound)

		resp, err := h.delete(authCtx, &deleteInput{ID: "missing"})

		assert.Nil(t, resp)
		var statusErr huma.StatusError
		assert.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 404, statusErr.GetStatus())
	})
}

func TestHandler_list(t *testing.T) {
	userID := 42
	authCtx := auth.WithUserID(context.Background(), userID)

	svc := new(MockService)
	h := NewHandler(svc, nil, slog.Default(), huma.Middlewares{})

	stores := []*credential.StoreConnection{
		{ID: "store-1", UserID: userID, StoreName: "Shop A", Platform: "woocommerce"},
		{ID: "store-2", UserID: userID, StoreName: "Shop B", Platform: "shopify"},
	}
	svc.On("ListForUser", mock.Anything, userID).Return(stores, nil)

	resp, err := h.list(authCtx, nil)

	assert.NoError(t, err)
	assert.Len(t, resp.Body.Stores, 2)
	assert.Equal(t, "Shop A", resp.Body.Stores[0].StoreName)
}
