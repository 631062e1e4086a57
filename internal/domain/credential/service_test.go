package credential

import (
	"context"
	"testing"

	"golang.org/x/exp/slog"

	"storesync/internal/app/server/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByStoreID(ctx context.Context, storeID string) (*StoreConnection, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StoreConnection), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID int) ([]*StoreConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*StoreConnection), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, conn *StoreConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, storeID string) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

func newTestEncryptor(t *testing.T) *crypto.CredentialEncryptor {
	t.Helper()
	enc, err := crypto.NewCredentialEncryptor("unit-test-passphrase")
	require.NoError(t, err)
	return enc
}

func TestService_Resolve(t *testing.T) {
	mockRepo := new(MockRepository)
	enc := newTestEncryptor(t)
	service := NewService(mockRepo, enc, slog.Default())

	sealed, err := enc.Encrypt([]byte(`{"api_url":"https://shop.example.com/","consumerKey":"ck_1","secret":"cs_2"}`))
	require.NoError(t, err)

	mockRepo.On("GetByStoreID", mock.Anything, "store-1").Return(&StoreConnection{
		ID:            "store-1",
		Platform:      "woocommerce",
		EncryptedBlob: sealed,
	}, nil)

	creds, err := service.Resolve(context.Background(), "store-1")
	require.NoError(t, err)
	assert.Equal(t, "woocommerce", creds.Platform)
	assert.Equal(t, "https://shop.example.com", creds.APIURL)
	assert.Equal(t, "ck_1", creds.ConsumerKey)
	assert.Equal(t, "cs_2", creds.ConsumerSecret)

	mockRepo.AssertExpectations(t)
}

func TestService_Resolve_NotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, newTestEncryptor(t), slog.Default())

	mockRepo.On("GetByStoreID", mock.Anything, "missing").Return(nil, ErrNotFound)

	_, err := service.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_SaveConnection_RejectsIncomplete(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, newTestEncryptor(t), slog.Default())

	conn := &StoreConnection{ID: "store-1", Platform: "woocommerce"}
	err := service.SaveConnection(context.Background(), conn, &Credentials{APIURL: "https://shop.example.com"})
	assert.ErrorIs(t, err, ErrInvalidBlob)
	mockRepo.AssertNotCalled(t, "Save")
}

func TestService_CheckOwnership(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, newTestEncryptor(t), slog.Default())

	mockRepo.On("GetByStoreID", mock.Anything, "store-1").Return(&StoreConnection{ID: "store-1", UserID: 7}, nil)

	assert.NoError(t, service.CheckOwnership(context.Background(), "store-1", 7))
	assert.ErrorIs(t, service.CheckOwnership(context.Background(), "store-1", 8), ErrNotOwner)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		blob     string
		wantErr  error
		check    func(t *testing.T, c *Credentials)
	}{
		{
			name:     "bare string token",
			platform: "shopify",
			blob:     "shpat_abc123",
			check: func(t *testing.T, c *Credentials) {
				assert.Equal(t, "shpat_abc123", c.AccessToken)
			},
		},
		{
			name:     "legacy aliases",
			platform: "woocommerce",
			blob:     `{"url":"https://a.example.com","key":"ck","secret":"cs","wp_user":"admin","wp_app_password":"pw"}`,
			check: func(t *testing.T, c *Credentials) {
				assert.Equal(t, "ck", c.ConsumerKey)
				assert.Equal(t, "cs", c.ConsumerSecret)
				assert.Equal(t, "https://a.example.com", c.BlogURL)
				assert.True(t, c.HasBlogAccess())
			},
		},
		{
			name:     "unsupported platform",
			platform: "magento",
			blob:     "{}",
			wantErr:  ErrUnsupportedPlatform,
		},
		{
			name:     "missing key pair",
			platform: "woocommerce",
			blob:     `{"url":"https://a.example.com"}`,
			wantErr:  ErrInvalidBlob,
		},
		{
			name:     "shopify object blob",
			platform: "shopify",
			blob:     `{"store_url":"https://x.myshopify.com/","accessToken":"tok"}`,
			check: func(t *testing.T, c *Credentials) {
				assert.Equal(t, "https://x.myshopify.com", c.APIURL)
				assert.Equal(t, "tok", c.AccessToken)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := Normalize(tt.platform, []byte(tt.blob))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, creds)
		})
	}
}
