package woocommerce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storesync/internal/platform"
)

const productTypeVariable = "variable"

type wooProduct struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	SKU              string          `json:"sku"`
	RegularPrice     string          `json:"regular_price"`
	SalePrice        string          `json:"sale_price"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"short_description"`
	StockQuantity    *int            `json:"stock_quantity"`
	DateModifiedGMT  string          `json:"date_modified_gmt"`
	MetaData         []wooMeta       `json:"meta_data"`
	Images           json.RawMessage `json:"images"`
	Categories       json.RawMessage `json:"categories"`
}

type wooMeta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// parseProducts normalizes a WooCommerce product (or variation) listing into
// the internal field vocabulary. The raw object is kept alongside the mapped
// fields so imports never lose data the mapping does not cover.
func parseProducts(body []byte) ([]*platform.RemoteItem, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse product listing: %w", err)
	}

	items := make([]*platform.RemoteItem, 0, len(rows))
	for _, row := range rows {
		var p wooProduct
		if err := json.Unmarshal(row, &p); err != nil {
			return nil, fmt.Errorf("parse product: %w", err)
		}

		fields := map[string]any{
			"title":             p.Name,
			"slug":              p.Slug,
			"status":            p.Status,
			"sku":               p.SKU,
			"regular_price":     p.RegularPrice,
			"sale_price":        p.SalePrice,
			"description":       p.Description,
			"short_description": p.ShortDescription,
		}
		if p.StockQuantity != nil {
			fields["stock_quantity"] = *p.StockQuantity
		}
		applySEOMeta(fields, p.MetaData)

		var raw map[string]any
		_ = json.Unmarshal(row, &raw)

		items = append(items, &platform.RemoteItem{
			ExternalID:   strconv.Itoa(p.ID),
			Fields:       fields,
			Raw:          raw,
			IsVariable:   p.Type == productTypeVariable,
			DateModified: parseWPTime(p.DateModifiedGMT),
		})
	}
	return items, nil
}

// applySEOMeta lifts known SEO plugin meta values into the internal field
// names. Yoast keys win when both plugins left values behind.
func applySEOMeta(fields map[string]any, meta []wooMeta) {
	for _, m := range meta {
		switch m.Key {
		case "rank_math_title":
			if _, ok := fields["seo_title"]; !ok {
				fields["seo_title"] = m.Value
			}
		case "rank_math_description":
			if _, ok := fields["seo_description"]; !ok {
				fields["seo_description"] = m.Value
			}
		}
	}
	for _, m := range meta {
		switch m.Key {
		case "_yoast_wpseo_title":
			fields["seo_title"] = m.Value
		case "_yoast_wpseo_metadesc":
			fields["seo_description"] = m.Value
		}
	}
}

type wpPost struct {
	ID          int        `json:"id"`
	Slug        string     `json:"slug"`
	Status      string     `json:"status"`
	Title       wpRendered `json:"title"`
	Content     wpRendered `json:"content"`
	Excerpt     wpRendered `json:"excerpt"`
	ModifiedGMT string     `json:"modified_gmt"`
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

func parsePosts(body []byte) ([]*platform.RemoteItem, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse post listing: %w", err)
	}

	items := make([]*platform.RemoteItem, 0, len(rows))
	for _, row := range rows {
		var p wpPost
		if err := json.Unmarshal(row, &p); err != nil {
			return nil, fmt.Errorf("parse post: %w", err)
		}

		var raw map[string]any
		_ = json.Unmarshal(row, &raw)

		items = append(items, &platform.RemoteItem{
			ExternalID: strconv.Itoa(p.ID),
			Fields: map[string]any{
				"title":   p.Title.Rendered,
				"content": p.Content.Rendered,
				"excerpt": p.Excerpt.Rendered,
				"slug":    p.Slug,
				"status":  p.Status,
			},
			Raw:          raw,
			DateModified: parseWPTime(p.ModifiedGMT),
		})
	}
	return items, nil
}

// parseWPTime reads WordPress GMT timestamps, which omit the zone suffix.
func parseWPTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
