package importer

import (
	"context"
	"time"
)

// Category is the local mirror of one store category (or collection).
type Category struct {
	ID                 string    `json:"id"`
	StoreID            string    `json:"store_id"`
	PlatformCategoryID string    `json:"platform_category_id"`
	ParentPlatformID   string    `json:"parent_platform_id,omitempty"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	Description        string    `json:"description,omitempty"`
	ItemCount          int       `json:"item_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CategoryStore persists category mirrors, keyed on (store, platform id).
type CategoryStore interface {
	UpsertCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context, storeID string) ([]*Category, error)
}
