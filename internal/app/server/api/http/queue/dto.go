package queue

import (
	"storesync/internal/domain/queue"
)

type listInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
	Status  string `query:"status" doc:"Filter by job status" enum:"pending,processing,completed,dead_letter," required:"false"`
	Limit   int    `query:"limit" doc:"Maximum number of jobs" minimum:"1" maximum:"200" default:"50" required:"false"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Jobs []*queue.SyncJob `json:"jobs"`
}

type statsInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
}

type statsOutput struct {
	Body *queue.QueueStats
}

type findInput struct {
	ID string `path:"id" doc:"Sync job id"`
}

type findOutput struct {
	Body *queue.SyncJob
}

type logsInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
	Limit   int    `query:"limit" doc:"Maximum number of entries" minimum:"1" maximum:"500" default:"100" required:"false"`
}

type logsOutput struct {
	Body logsResponse
}

type logsResponse struct {
	Entries []*queue.LogEntry `json:"entries"`
}

type tickOutput struct {
	Body *queue.BatchResult
}
