package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
)

func testAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	creds := &credential.Credentials{
		Platform:    "shopify",
		APIURL:      srv.URL,
		AccessToken: "shpat_test",
	}
	factory := NewFactory(slog.Default())
	return factory(creds).(*Adapter)
}

type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func TestUpdateProduct_BuildsInputFromDirtyFields(t *testing.T) {
	var captured capturedRequest
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data":{"productUpdate":{"product":{"id":"gid://shopify/Product/42","title":"Fresh","variants":{"nodes":[{"price":"20.00","sku":"A-1"}]}},"userErrors":[]}}}`))
	}))

	payload := map[string]any{
		"title":         "Fresh",
		"regular_price": "19.999",
		"description":   "not dirty, must not be sent",
	}
	res, err := adapter.UpdateProduct(context.Background(), "42", payload, []string{"title", "regular_price"})
	require.NoError(t, err)
	require.True(t, res.Success)

	input := captured.Variables["input"].(map[string]any)
	assert.Equal(t, "gid://shopify/Product/42", input["id"])
	assert.Equal(t, "Fresh", input["title"])
	assert.NotContains(t, input, "descriptionHtml")

	variants := input["variants"].([]any)
	require.Len(t, variants, 1)
	assert.Equal(t, "19.999", variants[0].(map[string]any)["price"])

	// Canonical values from the mutation response.
	assert.Equal(t, "20.00", res.UpdatedSnapshot["regular_price"])
}

func TestUpdateProduct_EmptyPayloadSkipsCall(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty payload")
	}))

	res, err := adapter.UpdateProduct(context.Background(), "42", map[string]any{"unmapped": 1}, []string{"unmapped"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.NoOp)
}

func TestUpdateProduct_UserErrorsArePermanent(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"productUpdate":{"product":null,"userErrors":[{"field":["title"],"message":"Title can't be blank"}]}}}`))
	}))

	res, err := adapter.UpdateProduct(context.Background(), "42", map[string]any{"title": ""}, []string{"title"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.Retryable)
	assert.NotContains(t, res.Error, "Title can't be blank")
}

func TestUpdateProduct_ThrottledIsRetryable(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`))
	}))

	res, err := adapter.UpdateProduct(context.Background(), "42", map[string]any{"title": "x"}, []string{"title"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
}

func TestUpdateProduct_HTTPRateLimitIsRetryable(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	res, err := adapter.UpdateProduct(context.Background(), "42", map[string]any{"title": "x"}, []string{"title"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
}

func TestUpdateArticle_Unsupported(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	res, err := adapter.UpdateArticle(context.Background(), "7", map[string]any{"title": "x"}, []string{"title"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.Retryable)
}

func TestFetchProductsPage_NormalizesNodes(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"products":{"nodes":[
			{"id":"gid://shopify/Product/51","title":"Plain","handle":"plain","status":"ACTIVE","updatedAt":"2026-08-20T10:00:00Z","hasOnlyDefaultVariant":true,"variants":{"nodes":[{"price":"5.00","sku":"P-51","inventoryQuantity":3}]}},
			{"id":"gid://shopify/Product/52","title":"Shirt","handle":"shirt","status":"DRAFT","hasOnlyDefaultVariant":false,"variants":{"nodes":[]}}
		],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}`))
	}))

	items, err := adapter.FetchProductsPage(context.Background(), 1, 50)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "51", items[0].ExternalID)
	assert.Equal(t, "Plain", items[0].Fields["title"])
	assert.Equal(t, "active", items[0].Fields["status"])
	assert.Equal(t, "5.00", items[0].Fields["regular_price"])
	assert.False(t, items[0].IsVariable)
	assert.False(t, items[0].DateModified.IsZero())

	assert.True(t, items[1].IsVariable)
}

func TestFetchVariations_SetsParent(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"product":{"variants":{"nodes":[{"id":"gid://shopify/ProductVariant/521","title":"S","price":"9.00","sku":"P-52-S","inventoryQuantity":2}],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}`))
	}))

	items, err := adapter.FetchVariations(context.Background(), "52")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "521", items[0].ExternalID)
	assert.Equal(t, "52", items[0].ParentID)
}

func TestFetchProductsModifiedSince_BuildsSearchQuery(t *testing.T) {
	var captured capturedRequest
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data":{"products":{"nodes":[],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}`))
	}))

	since := parseShopifyTime("2026-08-20T10:00:00Z")
	_, err := adapter.FetchProductsModifiedSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, "updated_at:>'2026-08-20T10:00:00Z'", captured.Variables["query"])
}

func TestCount(t *testing.T) {
	adapter := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"productsCount":{"count":237},"collectionsCount":{"count":12}}}`))
	}))

	counts, err := adapter.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 237, counts.Products)
	assert.Equal(t, 12, counts.Categories)
	assert.Zero(t, counts.Posts)
}

func TestNumericID(t *testing.T) {
	assert.Equal(t, "42", numericID("gid://shopify/Product/42"))
	assert.Equal(t, "42", numericID("42"))
}
