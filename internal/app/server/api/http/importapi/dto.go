package importapi

import (
	"storesync/internal/domain/importer"
)

type startInput struct {
	StoreID string `path:"id" doc:"Store connection id"`
	Body    startRequest
}

type startRequest struct {
	ForceRestart bool `json:"force_restart,omitempty" doc:"Abandon an active import and start over"`
}

type startOutput struct {
	Body *importer.SyncImportJob
}

type runInput struct {
	JobID string `path:"jobID" doc:"Import job id"`
}

type runOutput struct {
	Body *importer.RunResult
}

type statusInput struct {
	JobID string `path:"jobID" doc:"Import job id"`
}

type statusOutput struct {
	Body *importer.Status
}
