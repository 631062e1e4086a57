package queue

// JobResult is the per-job outcome of one worker pass.
type JobResult struct {
	JobID        string `json:"job_id"`
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	Status       string `json:"status"`
	AttemptCount int    `json:"attempt_count"`
	Error        string `json:"error,omitempty"`
	NoOp         bool   `json:"no_op,omitempty"`
}

// BatchResult summarizes one worker pass over claimed jobs. Failed counts
// every attempt that did not succeed; Retried and DeadLettered split it by
// what happens to the job next.
type BatchResult struct {
	Processed    int         `json:"processed"`
	Succeeded    int         `json:"succeeded"`
	Failed       int         `json:"failed"`
	Retried      int         `json:"retried"`
	DeadLettered int         `json:"dead_lettered"`
	Results      []JobResult `json:"results"`
}

// QueueStats is the live depth of the queue by status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	DeadLetter int `json:"dead_letter"`
}
