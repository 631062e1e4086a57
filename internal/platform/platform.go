// Package platform defines the uniform adapter surface the sync engine uses
// to talk to external storefronts. One implementation exists per platform;
// dispatch happens through the Registry, never through platform-name
// conditionals in calling code.
package platform

import (
	"context"
	"time"

	"storesync/internal/domain/credential"
)

// SyncResult is the outcome of one outbound update call.
type SyncResult struct {
	Success bool
	// Error is the sanitized failure description. Raw platform responses
	// never leave the adapter except through logs.
	Error string
	// Retryable marks transient failures (timeouts, 429, 5xx). Permanent
	// failures such as validation or duplicate-SKU errors are not retried.
	Retryable bool
	// UpdatedSnapshot carries the platform's canonical post-update field
	// values, when the platform returns them.
	UpdatedSnapshot map[string]any
	// NoOp is set when the mapped payload was empty and no call was made.
	NoOp bool
}

// RemoteItem is one product, variation, category or post as fetched from the
// platform, normalized to the internal field vocabulary.
type RemoteItem struct {
	ExternalID   string
	ParentID     string
	Fields       map[string]any
	Raw          map[string]any
	IsVariable   bool
	DateModified time.Time
}

// Counts is the result of discovery count-only requests.
type Counts struct {
	Products   int
	Categories int
	Posts      int
}

// Adapter is the per-platform capability interface.
type Adapter interface {
	// UpdateProduct builds a platform-native partial payload from the dirty
	// fields only and applies it to the remote product. An empty mapped
	// payload returns success without a network call.
	UpdateProduct(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*SyncResult, error)

	// UpdateArticle is the blog-post counterpart of UpdateProduct.
	UpdateArticle(ctx context.Context, externalID string, payload map[string]any, dirtyFields []string) (*SyncResult, error)

	// Count issues lightweight count-only requests for discovery.
	Count(ctx context.Context) (*Counts, error)

	// DetectSEOPlugin probes the platform for the active SEO plugin
	// ("yoast", "rankmath" or "" when none is detected).
	DetectSEOPlugin(ctx context.Context) (string, error)

	// FetchProductsPage returns one page of products ordered by a stable
	// key. Variable products are flagged but their variations are not
	// expanded inline.
	FetchProductsPage(ctx context.Context, page, perPage int) ([]*RemoteItem, error)

	// FetchVariations returns all variations of one variable product.
	FetchVariations(ctx context.Context, externalID string) ([]*RemoteItem, error)

	// FetchCategories returns the full category list.
	FetchCategories(ctx context.Context) ([]*RemoteItem, error)

	// FetchPostsPage returns one page of blog posts with embedded
	// relations (featured media, terms, author) already resolved.
	FetchPostsPage(ctx context.Context, page, perPage int) ([]*RemoteItem, error)

	// FetchProductsModifiedSince returns products whose remote modification
	// timestamp is strictly after the given checkpoint.
	FetchProductsModifiedSince(ctx context.Context, since time.Time) ([]*RemoteItem, error)
}

// Factory builds an adapter from resolved credentials.
type Factory func(creds *credential.Credentials) Adapter
