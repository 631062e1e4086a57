package importer

import "time"

// Import job statuses.
const (
	StatusDiscovering = "discovering"
	StatusSyncing     = "syncing"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Chunk statuses.
const (
	ChunkPending    = "pending"
	ChunkProcessing = "processing"
	ChunkCompleted  = "completed"
	ChunkFailed     = "failed"
)

// Chunk kinds, processed in this order: categories first so products can
// reference them, then products, variations, posts.
const (
	KindCategories = "categories"
	KindProducts   = "products"
	KindVariations = "variations"
	KindPosts      = "posts"
)

// SyncImportJob tracks one full catalog import for a store.
type SyncImportJob struct {
	ID      string `json:"id"`
	UserID  int    `json:"user_id"`
	StoreID string `json:"store_id"`
	Status  string `json:"status"`

	// Discovery results.
	ProductCount  int    `json:"product_count"`
	CategoryCount int    `json:"category_count"`
	PostCount     int    `json:"post_count"`
	SEOPlugin     string `json:"seo_plugin,omitempty"`

	// Chunked is false for small catalogs imported in one pass.
	Chunked bool `json:"chunked"`

	ImportedProducts   int `json:"imported_products"`
	ImportedCategories int `json:"imported_categories"`
	ImportedPosts      int `json:"imported_posts"`
	ImportedVariations int `json:"imported_variations"`

	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the job can still make progress.
func (j *SyncImportJob) Active() bool {
	return j.Status == StatusDiscovering || j.Status == StatusSyncing
}

// ImportChunk is one unit of import work, sized to fit a single page fetch.
type ImportChunk struct {
	ID          string `json:"id"`
	ImportJobID string `json:"import_job_id"`
	Kind        string `json:"kind"`
	// Page/PageSize locate the remote slice for paged kinds. Variation
	// chunks carry the parent product id instead.
	Page             int       `json:"page"`
	PageSize         int       `json:"page_size"`
	ParentExternalID string    `json:"parent_external_id,omitempty"`
	Status           string    `json:"status"`
	ItemCount        int       `json:"item_count"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
