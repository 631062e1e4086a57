package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
	"storesync/internal/platform"
)

// SEO meta keys. Either plugin may be active on the target site, so title
// and description are written under both key sets.
var seoMetaKeys = map[string][]string{
	"seo_title":       {"_yoast_wpseo_title", "rank_math_title"},
	"seo_description": {"_yoast_wpseo_metadesc", "rank_math_description"},
}

// fieldMap translates internal product field names to WooCommerce REST
// payload keys. Fields absent from the map are skipped, not passed through,
// so the adapter never sends keys it does not understand.
var fieldMap = map[string]string{
	"title":             "name",
	"description":       "description",
	"short_description": "short_description",
	"regular_price":     "regular_price",
	"sale_price":        "sale_price",
	"sku":               "sku",
	"status":            "status",
	"slug":              "slug",
	"stock_quantity":    "stock_quantity",
}

var articleFieldMap = map[string]string{
	"title":   "title",
	"content": "content",
	"excerpt": "excerpt",
	"slug":    "slug",
	"status":  "status",
}

// Adapter implements platform.Adapter for WooCommerce stores (WooCommerce
// REST for catalog data, WordPress REST for blog posts).
type Adapter struct {
	client *client
	log    *slog.Logger
}

// NewFactory returns the factory registered under the "woocommerce" name.
func NewFactory(log *slog.Logger) platform.Factory {
	return func(creds *credential.Credentials) platform.Adapter {
		l := log.With(slog.String("platform", "woocommerce"))
		return &Adapter{client: newClient(creds, l), log: l}
	}
}

func (a *Adapter) UpdateProduct(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	native := buildPartialPayload(payload, dirtyFields, fieldMap)
	if len(native) == 0 {
		return &platform.SyncResult{Success: true, NoOp: true}, nil
	}
	if _, ok := native["stock_quantity"]; ok {
		native["manage_stock"] = true
	}

	body, _, err := a.client.doStore(ctx, http.MethodPut, "/products/"+externalID, nil, native)
	if err != nil {
		return resultFromError(err), nil
	}

	return successResult(body, dirtyFields, fieldMap), nil
}

func (a *Adapter) UpdateArticle(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	native := buildPartialPayload(payload, dirtyFields, articleFieldMap)
	if len(native) == 0 {
		return &platform.SyncResult{Success: true, NoOp: true}, nil
	}

	body, _, err := a.client.doBlog(ctx, http.MethodPost, "/posts/"+externalID, nil, native)
	if err != nil {
		return resultFromError(err), nil
	}

	return successResult(body, dirtyFields, articleFieldMap), nil
}

// buildPartialPayload maps only the named dirty fields into the platform's
// native keys; SEO fields are dual-written under both plugin key sets.
func buildPartialPayload(payload map[string]any, dirtyFields []string, mapping map[string]string) map[string]any {
	native := make(map[string]any)
	var meta []map[string]any

	for _, field := range dirtyFields {
		value, ok := payload[field]
		if !ok {
			continue
		}
		if keys, isSEO := seoMetaKeys[field]; isSEO {
			for _, key := range keys {
				meta = append(meta, map[string]any{"key": key, "value": value})
			}
			continue
		}
		if nativeKey, ok := mapping[field]; ok {
			native[nativeKey] = value
		}
	}

	if len(meta) > 0 {
		native["meta_data"] = meta
	}
	return native
}

func resultFromError(err error) *platform.SyncResult {
	var ae *apiError
	if errors.As(err, &ae) {
		return &platform.SyncResult{
			Success:   false,
			Error:     ae.Message,
			Retryable: ae.Retryable,
		}
	}
	return &platform.SyncResult{
		Success:   false,
		Error:     "store request failed",
		Retryable: true,
	}
}

// successResult extracts the canonical post-update values for the pushed
// fields from the platform response.
func successResult(body []byte, dirtyFields []string, mapping map[string]string) *platform.SyncResult {
	res := &platform.SyncResult{Success: true}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return res
	}

	snapshot := make(map[string]any)
	for _, field := range dirtyFields {
		nativeKey, ok := mapping[field]
		if !ok {
			continue
		}
		if v, ok := raw[nativeKey]; ok {
			snapshot[field] = flattenRendered(v)
		}
	}
	if len(snapshot) > 0 {
		res.UpdatedSnapshot = snapshot
	}
	return res
}

// flattenRendered unwraps WordPress {"rendered": "..."} envelopes.
func flattenRendered(v any) any {
	if m, ok := v.(map[string]any); ok {
		if rendered, ok := m["rendered"]; ok {
			return rendered
		}
	}
	return v
}

func (a *Adapter) Count(ctx context.Context) (*platform.Counts, error) {
	counts := &platform.Counts{}

	q := url.Values{}
	q.Set("per_page", "1")
	_, headers, err := a.client.doStore(ctx, http.MethodGet, "/products", q, nil)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	counts.Products = totalFromHeader(headers)

	q = url.Values{}
	q.Set("per_page", "1")
	_, headers, err = a.client.doStore(ctx, http.MethodGet, "/products/categories", q, nil)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	counts.Categories = totalFromHeader(headers)

	if a.client.creds.HasBlogAccess() {
		q = url.Values{}
		q.Set("per_page", "1")
		_, headers, err = a.client.doBlog(ctx, http.MethodGet, "/posts", q, nil)
		if err != nil {
			// Blog credentials may be stale; posts are optional.
			a.log.Warn("post count failed, skipping posts phase", "error", err)
		} else {
			counts.Posts = totalFromHeader(headers)
		}
	}

	return counts, nil
}

func (a *Adapter) DetectSEOPlugin(ctx context.Context) (string, error) {
	fullURL := a.client.creds.BlogURL + "/wp-json/"
	body, _, err := a.client.do(ctx, http.MethodGet, fullURL, nil, "")
	if err != nil {
		return "", fmt.Errorf("probe capability listing: %w", err)
	}

	var root struct {
		Namespaces []string `json:"namespaces"`
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("parse capability listing: %w", err)
	}

	for _, ns := range root.Namespaces {
		switch {
		case ns == "yoast/v1":
			return "yoast", nil
		case ns == "rankmath/v1":
			return "rankmath", nil
		}
	}
	return "", nil
}

func (a *Adapter) FetchProductsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	// id is immutable; sorting on a mutable field drifts across a long
	// import and duplicates items between adjacent pages.
	q.Set("orderby", "id")
	q.Set("order", "asc")

	body, _, err := a.client.doStore(ctx, http.MethodGet, "/products", q, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch products page %d: %w", page, err)
	}
	return parseProducts(body)
}

func (a *Adapter) FetchVariations(ctx context.Context, externalID string) ([]*platform.RemoteItem, error) {
	var all []*platform.RemoteItem
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", "100")
		q.Set("orderby", "id")
		q.Set("order", "asc")

		body, _, err := a.client.doStore(ctx, http.MethodGet, "/products/"+externalID+"/variations", q, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch variations for %s page %d: %w", externalID, page, err)
		}

		items, err := parseProducts(body)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			item.ParentID = externalID
		}
		all = append(all, items...)
		if len(items) < 100 {
			break
		}
	}
	return all, nil
}

func (a *Adapter) FetchCategories(ctx context.Context) ([]*platform.RemoteItem, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	q.Set("orderby", "id")
	q.Set("order", "asc")

	body, _, err := a.client.doStore(ctx, http.MethodGet, "/products/categories", q, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	var cats []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Parent      int    `json:"parent"`
		Description string `json:"description"`
		Count       int    `json:"count"`
	}
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	items := make([]*platform.RemoteItem, 0, len(cats))
	for _, c := range cats {
		items = append(items, &platform.RemoteItem{
			ExternalID: strconv.Itoa(c.ID),
			Fields: map[string]any{
				"title":       c.Name,
				"slug":        c.Slug,
				"description": c.Description,
				"parent_id":   strconv.Itoa(c.Parent),
				"item_count":  c.Count,
			},
		})
	}
	return items, nil
}

func (a *Adapter) FetchPostsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "id")
	q.Set("order", "asc")
	// Resolve featured media, terms and author in the same fetch.
	q.Set("_embed", "1")

	body, _, err := a.client.doBlog(ctx, http.MethodGet, "/posts", q, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch posts page %d: %w", page, err)
	}
	return parsePosts(body)
}

func (a *Adapter) FetchProductsModifiedSince(ctx context.Context, since time.Time) ([]*platform.RemoteItem, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	q.Set("orderby", "modified")
	q.Set("order", "asc")
	if !since.IsZero() {
		q.Set("modified_after", since.UTC().Format(time.RFC3339))
	}

	body, _, err := a.client.doStore(ctx, http.MethodGet, "/products", q, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch modified products: %w", err)
	}
	return parseProducts(body)
}
