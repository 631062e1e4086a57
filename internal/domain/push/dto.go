package push

// Request asks for a set of locally edited entities to be queued for push.
type Request struct {
	StoreID    string   `json:"store_id"`
	ProductIDs []string `json:"product_ids,omitempty"`
	ArticleIDs []string `json:"article_ids,omitempty"`
	// Force bypasses the remote-newer conflict check.
	Force bool `json:"force,omitempty"`
}

// QueuedItem is one entity accepted into the queue.
type QueuedItem struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	JobID      string   `json:"job_id"`
	Fields     []string `json:"fields"`
}

// SkippedItem is one entity not queued, with the reason.
type SkippedItem struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Reason     string `json:"reason"`
}

// Result is the outcome of one push request.
type Result struct {
	Queued  []QueuedItem  `json:"queued"`
	Skipped []SkippedItem `json:"skipped"`
}
