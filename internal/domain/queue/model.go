package queue

import "time"

// Job statuses. A job moves pending -> processing -> completed, or back to
// pending with a future next_attempt_at after a transient failure. dead_letter
// is terminal: no automatic transition leaves it.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusDeadLetter = "dead_letter"
)

const (
	EntityProduct = "product"
	EntityArticle = "article"
)

// permanentPrefix marks errors that no amount of retrying can fix; the
// worker sends such jobs straight to the dead letter state.
const permanentPrefix = "permanent: "

// SyncJob is one queued outbound push for a single product or article.
type SyncJob struct {
	ID            string     `json:"id"`
	UserID        int        `json:"user_id"`
	StoreID       string     `json:"store_id"`
	EntityType    string     `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	Fields        []string   `json:"fields"`
	Status        string     `json:"status"`
	AttemptCount  int        `json:"attempt_count"`
	MaxAttempts   int        `json:"max_attempts"`
	LastError     string     `json:"last_error,omitempty"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
