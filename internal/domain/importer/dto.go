package importer

// RunResult summarizes one processing pass over a job's chunks.
type RunResult struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	ChunksProcessed int    `json:"chunks_processed"`
	ChunksPending   int    `json:"chunks_pending"`
	ChunksFailed    int    `json:"chunks_failed"`
	ChunksTotal     int    `json:"chunks_total"`
	// CanResume tells the caller to invoke the run again to continue; the
	// pass stopped on the time budget, not on completion.
	CanResume       bool    `json:"can_resume"`
	ItemsImported   int     `json:"items_imported"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Status is the progress view of one import job.
type Status struct {
	Job           *SyncImportJob `json:"job"`
	ChunksPending int            `json:"chunks_pending"`
	ChunksFailed  int            `json:"chunks_failed"`
	ChunksTotal   int            `json:"chunks_total"`
}
