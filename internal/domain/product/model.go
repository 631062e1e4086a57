package product

import (
	"time"
)

// Content is one layer of product content keyed by field name
// (title, description, regular_price, sku, seo_title, ...).
type Content map[string]any

// Product is the local mirror of one platform product. It carries three
// content layers:
//
//   - Metadata: the full immutable snapshot taken at import time
//   - StoreSnapshotContent: the last-known platform state, used for diffing
//   - WorkingContent: the current locally editable state
//
// DirtyFields lists the fields where WorkingContent diverges from
// StoreSnapshotContent and a push is owed.
type Product struct {
	ID                   string    `json:"id"`
	StoreID              string    `json:"store_id"`
	Platform             string    `json:"platform"`
	PlatformProductID    string    `json:"platform_product_id"`
	ParentPlatformID     string    `json:"parent_platform_id,omitempty"` // set for variations
	Metadata             Content   `json:"metadata"`
	StoreSnapshotContent Content   `json:"store_snapshot_content"`
	WorkingContent       Content   `json:"working_content"`
	DirtyFields          []string  `json:"dirty_fields_content"`
	SyncStatus           string    `json:"sync_status"` // synced, pending, error
	IsVariable           bool      `json:"is_variable"`
	WorkingUpdatedAt     time.Time `json:"working_content_updated_at"`
	StoreLastModifiedAt  time.Time `json:"store_last_modified_at"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Article is the local mirror of one blog post, with the same layer
// semantics as Product.
type Article struct {
	ID                   string    `json:"id"`
	StoreID              string    `json:"store_id"`
	PlatformArticleID    string    `json:"platform_article_id"`
	Metadata             Content   `json:"metadata"`
	StoreSnapshotContent Content   `json:"store_snapshot_content"`
	WorkingContent       Content   `json:"working_content"`
	DirtyFields          []string  `json:"dirty_fields_content"`
	WorkingUpdatedAt     time.Time `json:"working_content_updated_at"`
	StoreLastModifiedAt  time.Time `json:"store_last_modified_at"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsDirty reports whether the field still awaits a push.
func (p *Product) IsDirty(field string) bool {
	for _, f := range p.DirtyFields {
		if f == field {
			return true
		}
	}
	return false
}

// ApplyPushResult folds a successful push back into the mirror: the pushed
// fields become the new snapshot and drop out of the dirty set. This is what
// keeps "pending changes" indicators honest.
func (p *Product) ApplyPushResult(pushed []string, snapshot Content, now time.Time) {
	if p.StoreSnapshotContent == nil {
		p.StoreSnapshotContent = Content{}
	}
	for _, f := range pushed {
		if snapshot != nil {
			if v, ok := snapshot[f]; ok {
				p.StoreSnapshotContent[f] = v
				continue
			}
		}
		if v, ok := p.WorkingContent[f]; ok {
			p.StoreSnapshotContent[f] = v
		}
	}

	remaining := make([]string, 0, len(p.DirtyFields))
	for _, f := range p.DirtyFields {
		keep := true
		for _, pushedField := range pushed {
			if f == pushedField {
				keep = false
				break
			}
		}
		if keep {
			remaining = append(remaining, f)
		}
	}
	p.DirtyFields = remaining
	p.StoreLastModifiedAt = now
	if len(p.DirtyFields) == 0 {
		p.SyncStatus = "synced"
	}
}

// ApplyRemote overwrites both the snapshot and working layers with remote
// content and clears the dirty set. Store always wins.
func (p *Product) ApplyRemote(remote Content, remoteModified time.Time) {
	p.StoreSnapshotContent = cloneContent(remote)
	p.WorkingContent = cloneContent(remote)
	p.DirtyFields = nil
	p.SyncStatus = "synced"
	p.StoreLastModifiedAt = remoteModified
}

func cloneContent(c Content) Content {
	if c == nil {
		return Content{}
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
