package heartbeat

import (
	"storesync/internal/domain/heartbeat"
)

type storeInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
}

type statusOutput struct {
	Body *heartbeat.StoreHeartbeat
}

type checkOutput struct {
	Body *heartbeat.CheckResult
}

type resetOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}

type conflictsInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
	Limit   int    `query:"limit" doc:"Maximum number of entries" minimum:"1" maximum:"500" default:"100" required:"false"`
}

type conflictsOutput struct {
	Body conflictsResponse
}

type conflictsResponse struct {
	Conflicts []*heartbeat.ConflictLogEntry `json:"conflicts"`
}

type tickOutput struct {
	Body *heartbeat.TickResult
}
