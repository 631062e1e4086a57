package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
	"storesync/internal/platform"
)

const productGID = "gid://shopify/Product/"

const productUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product {
      id
      title
      handle
      status
      descriptionHtml
      variants(first: 1) { nodes { price sku } }
    }
    userErrors { field message }
  }
}`

const productsPageQuery = `
query products($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, sortKey: ID, query: $query) {
    nodes {
      id
      title
      handle
      status
      descriptionHtml
      updatedAt
      hasOnlyDefaultVariant
      variants(first: 1) { nodes { price sku inventoryQuantity } }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const variationsQuery = `
query variations($id: ID!, $after: String) {
  product(id: $id) {
    variants(first: 100, after: $after) {
      nodes { id title price sku inventoryQuantity updatedAt }
      pageInfo { hasNextPage endCursor }
    }
  }
}`

const collectionsQuery = `
query collections($after: String) {
  collections(first: 100, after: $after) {
    nodes { id title handle description }
    pageInfo { hasNextPage endCursor }
  }
}`

const countsQuery = `
query counts {
  productsCount { count }
  collectionsCount { count }
}`

// Adapter implements platform.Adapter for Shopify stores through the Admin
// GraphQL API. Shopify has no blog post sync surface here; article
// operations report permanent failures instead of pretending to succeed.
type Adapter struct {
	client *client
	log    *slog.Logger
}

func NewFactory(log *slog.Logger) platform.Factory {
	return func(creds *credential.Credentials) platform.Adapter {
		l := log.With(slog.String("platform", "shopify"))
		return &Adapter{client: newClient(creds, l), log: l}
	}
}

func (a *Adapter) UpdateProduct(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	input := buildProductInput(externalID, payload, dirtyFields)
	if len(input) <= 1 { // only the id key
		return &platform.SyncResult{Success: true, NoOp: true}, nil
	}

	var resp struct {
		ProductUpdate struct {
			Product    productNode `json:"product"`
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := a.client.query(ctx, productUpdateMutation, map[string]any{"input": input}, &resp); err != nil {
		return resultFromError(err), nil
	}

	if len(resp.ProductUpdate.UserErrors) > 0 {
		first := resp.ProductUpdate.UserErrors[0]
		a.log.Warn("product update rejected",
			slog.Any("field", first.Field),
			slog.String("detail", first.Message),
		)
		// Validation failures cannot be fixed by retrying.
		return &platform.SyncResult{
			Success:   false,
			Error:     "store rejected the product update",
			Retryable: false,
		}, nil
	}

	return &platform.SyncResult{
		Success:         true,
		UpdatedSnapshot: snapshotFields(resp.ProductUpdate.Product, dirtyFields),
	}, nil
}

func (a *Adapter) UpdateArticle(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*platform.SyncResult, error) {
	return &platform.SyncResult{
		Success:   false,
		Error:     "blog post sync is not supported for this platform",
		Retryable: false,
	}, nil
}

// buildProductInput maps dirty fields into a ProductInput. Price and SKU
// live on the variant, so they ride along as a single-variant update.
func buildProductInput(externalID string, payload map[string]any, dirtyFields []string) map[string]any {
	input := map[string]any{"id": productGID + externalID}
	variant := map[string]any{}
	seo := map[string]any{}

	for _, field := range dirtyFields {
		value, ok := payload[field]
		if !ok {
			continue
		}
		switch field {
		case "title":
			input["title"] = value
		case "description":
			input["descriptionHtml"] = value
		case "slug":
			input["handle"] = value
		case "status":
			input["status"] = mapStatus(value)
		case "regular_price":
			variant["price"] = value
		case "sku":
			variant["sku"] = value
		case "seo_title":
			seo["title"] = value
		case "seo_description":
			seo["description"] = value
		}
	}

	if len(variant) > 0 {
		input["variants"] = []map[string]any{variant}
	}
	if len(seo) > 0 {
		input["seo"] = seo
	}
	return input
}

// mapStatus translates the internal publish vocabulary to Shopify's enum.
func mapStatus(v any) string {
	switch v {
	case "publish":
		return "ACTIVE"
	case "draft":
		return "DRAFT"
	default:
		return "ARCHIVED"
	}
}

func resultFromError(err error) *platform.SyncResult {
	var ae *apiError
	if errors.As(err, &ae) {
		return &platform.SyncResult{Success: false, Error: ae.Message, Retryable: ae.Retryable}
	}
	return &platform.SyncResult{Success: false, Error: "store request failed", Retryable: true}
}

type productNode struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	Handle                string `json:"handle"`
	Status                string `json:"status"`
	DescriptionHTML       string `json:"descriptionHtml"`
	UpdatedAt             string `json:"updatedAt"`
	HasOnlyDefaultVariant bool   `json:"hasOnlyDefaultVariant"`
	Variants              struct {
		Nodes []struct {
			ID                string `json:"id"`
			Title             string `json:"title"`
			Price             string `json:"price"`
			SKU               string `json:"sku"`
			InventoryQuantity int    `json:"inventoryQuantity"`
			UpdatedAt         string `json:"updatedAt"`
		} `json:"nodes"`
	} `json:"variants"`
}

func snapshotFields(p productNode, dirtyFields []string) map[string]any {
	all := map[string]any{
		"title":       p.Title,
		"slug":        p.Handle,
		"status":      strings.ToLower(p.Status),
		"description": p.DescriptionHTML,
	}
	if len(p.Variants.Nodes) > 0 {
		all["regular_price"] = p.Variants.Nodes[0].Price
		all["sku"] = p.Variants.Nodes[0].SKU
	}

	snapshot := make(map[string]any)
	for _, field := range dirtyFields {
		if v, ok := all[field]; ok {
			snapshot[field] = v
		}
	}
	if len(snapshot) == 0 {
		return nil
	}
	return snapshot
}

func (a *Adapter) Count(ctx context.Context) (*platform.Counts, error) {
	var resp struct {
		ProductsCount    struct{ Count int } `json:"productsCount"`
		CollectionsCount struct{ Count int } `json:"collectionsCount"`
	}
	if err := a.client.query(ctx, countsQuery, nil, &resp); err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}
	return &platform.Counts{
		Products:   resp.ProductsCount.Count,
		Categories: resp.CollectionsCount.Count,
	}, nil
}

// DetectSEOPlugin always reports none; SEO fields are first-class on this
// platform rather than plugin metadata.
func (a *Adapter) DetectSEOPlugin(ctx context.Context) (string, error) {
	return "", nil
}

// FetchProductsPage maps page numbers onto cursor pagination by walking
// forward from the start. Imports consume pages in order, so in practice
// each call advances one cursor step.
func (a *Adapter) FetchProductsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	var after *string
	for step := 1; ; step++ {
		nodes, pageInfo, err := a.fetchProducts(ctx, perPage, after, "")
		if err != nil {
			return nil, fmt.Errorf("fetch products page %d: %w", page, err)
		}
		if step == page {
			return nodes, nil
		}
		if !pageInfo.HasNextPage {
			return nil, nil
		}
		after = &pageInfo.EndCursor
	}
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

func (a *Adapter) fetchProducts(ctx context.Context, first int, after *string, search string) ([]*platform.RemoteItem, pageInfo, error) {
	vars := map[string]any{"first": first}
	if after != nil {
		vars["after"] = *after
	}
	if search != "" {
		vars["query"] = search
	}

	var resp struct {
		Products struct {
			Nodes    []productNode `json:"nodes"`
			PageInfo pageInfo      `json:"pageInfo"`
		} `json:"products"`
	}
	if err := a.client.query(ctx, productsPageQuery, vars, &resp); err != nil {
		return nil, pageInfo{}, err
	}

	items := make([]*platform.RemoteItem, 0, len(resp.Products.Nodes))
	for _, n := range resp.Products.Nodes {
		fields := map[string]any{
			"title":       n.Title,
			"slug":        n.Handle,
			"status":      strings.ToLower(n.Status),
			"description": n.DescriptionHTML,
		}
		if len(n.Variants.Nodes) > 0 {
			v := n.Variants.Nodes[0]
			fields["regular_price"] = v.Price
			fields["sku"] = v.SKU
			fields["stock_quantity"] = v.InventoryQuantity
		}
		items = append(items, &platform.RemoteItem{
			ExternalID:   numericID(n.ID),
			Fields:       fields,
			IsVariable:   !n.HasOnlyDefaultVariant,
			DateModified: parseShopifyTime(n.UpdatedAt),
		})
	}
	return items, resp.Products.PageInfo, nil
}

func (a *Adapter) FetchVariations(ctx context.Context, externalID string) ([]*platform.RemoteItem, error) {
	var all []*platform.RemoteItem
	var after *string
	for {
		vars := map[string]any{"id": productGID + externalID}
		if after != nil {
			vars["after"] = *after
		}

		var resp struct {
			Product struct {
				Variants struct {
					Nodes []struct {
						ID                string `json:"id"`
						Title             string `json:"title"`
						Price             string `json:"price"`
						SKU               string `json:"sku"`
						InventoryQuantity int    `json:"inventoryQuantity"`
						UpdatedAt         string `json:"updatedAt"`
					} `json:"nodes"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"variants"`
			} `json:"product"`
		}
		if err := a.client.query(ctx, variationsQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("fetch variations for %s: %w", externalID, err)
		}

		for _, v := range resp.Product.Variants.Nodes {
			all = append(all, &platform.RemoteItem{
				ExternalID: numericID(v.ID),
				ParentID:   externalID,
				Fields: map[string]any{
					"title":          v.Title,
					"regular_price":  v.Price,
					"sku":            v.SKU,
					"stock_quantity": v.InventoryQuantity,
				},
				DateModified: parseShopifyTime(v.UpdatedAt),
			})
		}
		if !resp.Product.Variants.PageInfo.HasNextPage {
			return all, nil
		}
		after = &resp.Product.Variants.PageInfo.EndCursor
	}
}

func (a *Adapter) FetchCategories(ctx context.Context) ([]*platform.RemoteItem, error) {
	var all []*platform.RemoteItem
	var after *string
	for {
		vars := map[string]any{}
		if after != nil {
			vars["after"] = *after
		}

		var resp struct {
			Collections struct {
				Nodes []struct {
					ID          string `json:"id"`
					Title       string `json:"title"`
					Handle      string `json:"handle"`
					Description string `json:"description"`
				} `json:"nodes"`
				PageInfo pageInfo `json:"pageInfo"`
			} `json:"collections"`
		}
		if err := a.client.query(ctx, collectionsQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("fetch collections: %w", err)
		}

		for _, c := range resp.Collections.Nodes {
			all = append(all, &platform.RemoteItem{
				ExternalID: numericID(c.ID),
				Fields: map[string]any{
					"title":       c.Title,
					"slug":        c.Handle,
					"description": c.Description,
				},
			})
		}
		if !resp.Collections.PageInfo.HasNextPage {
			return all, nil
		}
		after = &resp.Collections.PageInfo.EndCursor
	}
}

// FetchPostsPage returns no items; this platform has no blog sync surface.
func (a *Adapter) FetchPostsPage(ctx context.Context, page, perPage int) ([]*platform.RemoteItem, error) {
	return nil, nil
}

func (a *Adapter) FetchProductsModifiedSince(ctx context.Context, since time.Time) ([]*platform.RemoteItem, error) {
	search := ""
	if !since.IsZero() {
		search = fmt.Sprintf("updated_at:>'%s'", since.UTC().Format(time.RFC3339))
	}
	items, _, err := a.fetchProducts(ctx, 100, nil, search)
	if err != nil {
		return nil, fmt.Errorf("fetch modified products: %w", err)
	}
	return items, nil
}

// numericID strips the gid prefix, keeping the stable numeric tail that
// external ids are stored under.
func numericID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		return gid[i+1:]
	}
	return gid
}

func parseShopifyTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
